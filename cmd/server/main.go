package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rl1809/oms/config"
	"github.com/rl1809/oms/internal/adapter/bus"
	"github.com/rl1809/oms/internal/adapter/handler"
	"github.com/rl1809/oms/internal/adapter/notify"
	"github.com/rl1809/oms/internal/adapter/scheduler"
	"github.com/rl1809/oms/internal/adapter/storage"
	"github.com/rl1809/oms/internal/core/service"
	"github.com/rl1809/oms/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Adapters
	orderRepo := storage.NewMySQLOrderAdapter(db)
	inventoryRepo := storage.NewMySQLInventoryAdapter(db)
	catalog := storage.NewCachedCatalog(
		rdb, storage.NewMySQLCatalogAdapter(db), cfg.Redis.PriceTTL, logger)

	eventBus := bus.NewBus(cfg.Bus.BufferSize, cfg.Bus.HandlerTimeout, logger)

	var publisher port.EventPublisher = eventBus
	var notifier *notify.KafkaNotifier
	if cfg.Kafka.Enabled {
		notifier = notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		publisher = bus.NewMirroredPublisher(eventBus, notifier, logger)
		logger.Info("kafka event mirroring enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}

	// Core services
	policy := service.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		Multiplier:  cfg.Retry.Multiplier,
	}
	inventoryService := service.NewInventoryService(inventoryRepo, publisher, policy, logger)
	orderService := service.NewOrderService(orderRepo, catalog, inventoryService, publisher, logger)
	saga := service.NewSagaOrchestrator(orderRepo, inventoryService, publisher, logger)

	// Saga consumers
	eventBus.Run(saga)
	logger.Info("saga consumers started")

	// Stuck-order recovery sweep
	sweeper := scheduler.NewRecoverySweeper(
		orderRepo, saga, cfg.Sweep.Interval, cfg.Sweep.Threshold, logger)
	go sweeper.Run(ctx)

	// HTTP entry points
	mux := http.NewServeMux()
	handler.NewHTTPHandler(orderService).Register(mux)
	httpServer := &http.Server{Addr: cfg.HTTP.Addr, Handler: mux}
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}

	cancel()
	eventBus.Close()
	eventBus.Wait()
	logger.Info("event bus drained")

	if notifier != nil {
		if err := notifier.Close(); err != nil {
			logger.Warn("kafka writer close failed", zap.Error(err))
		}
	}
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

func newLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	var zcfg zap.Config
	if cfg.Mode == "development" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
