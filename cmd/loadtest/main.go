// Command loadtest drives concurrent order placement against a live MySQL
// and Redis to verify stock conservation under contention: with N units of
// stock and more than N single-unit orders, exactly N orders must confirm
// and stock must never go negative.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/oms/config"
	"github.com/rl1809/oms/internal/adapter/bus"
	"github.com/rl1809/oms/internal/adapter/storage"
	"github.com/rl1809/oms/internal/core/domain"
	"github.com/rl1809/oms/internal/core/service"
)

const loadSku = "LOAD-TEST-SKU"

func main() {
	var (
		initialStock  = flag.Int("stock", 20, "units of stock to seed")
		totalRequests = flag.Int("orders", 50, "concurrent single-unit orders to place")
		settleTimeout = flag.Duration("timeout", 30*time.Second, "how long to wait for orders to settle")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	seed(ctx, db, rdb, *initialStock)

	// Wire the full saga path, minus the HTTP surface and Kafka mirror.
	logger := zap.NewNop()
	orderRepo := storage.NewMySQLOrderAdapter(db)
	inventoryRepo := storage.NewMySQLInventoryAdapter(db)
	catalog := storage.NewCachedCatalog(
		rdb, storage.NewMySQLCatalogAdapter(db), cfg.Redis.PriceTTL, logger)

	eventBus := bus.NewBus(cfg.Bus.BufferSize, cfg.Bus.HandlerTimeout, logger)
	inventoryService := service.NewInventoryService(
		inventoryRepo, eventBus, service.DefaultRetryPolicy(), logger)
	orderService := service.NewOrderService(
		orderRepo, catalog, inventoryService, eventBus, logger)
	eventBus.Run(service.NewSagaOrchestrator(orderRepo, inventoryService, eventBus, logger))

	// Fire the orders.
	var (
		mu       sync.Mutex
		placed   []uuid.UUID
		rejected int
		wg       sync.WaitGroup
	)
	start := time.Now()
	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmd, err := service.NewPlaceOrderCommand(map[string]int{loadSku: 1})
			if err != nil {
				log.Fatalf("bad command: %v", err)
			}
			id, err := orderService.PlaceOrder(ctx, cmd)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rejected++
				return
			}
			placed = append(placed, id)
		}()
	}
	wg.Wait()

	confirmed, cancelled, pending := settle(ctx, orderService, placed, *settleTimeout)
	elapsed := time.Since(start)

	eventBus.Close()
	eventBus.Wait()

	item, err := inventoryRepo.FindBySku(ctx, loadSku)
	if err != nil || item == nil {
		log.Fatalf("failed to reload inventory: %v", err)
	}

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Orders Placed:    %d (rejected at placement: %d)\n", len(placed), rejected)
	fmt.Printf("Confirmed:        %d\n", confirmed)
	fmt.Printf("Cancelled:        %d\n", cancelled)
	fmt.Printf("Still Pending:    %d\n", pending)
	fmt.Printf("Final Available:  %d\n", item.Available().Quantity())
	fmt.Printf("Final Reserved:   %d\n", item.Reserved().Quantity())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	ok := true
	if confirmed != *initialStock {
		fmt.Printf("FAIL: expected %d confirmed orders, got %d\n", *initialStock, confirmed)
		ok = false
	}
	if item.Available().Quantity() != 0 || item.Reserved().Quantity() != *initialStock {
		fmt.Printf("FAIL: expected 0 available / %d reserved, got %d / %d\n",
			*initialStock, item.Available().Quantity(), item.Reserved().Quantity())
		ok = false
	}
	if pending > 0 {
		fmt.Printf("FAIL: %d orders never settled within %v\n", pending, *settleTimeout)
		ok = false
	}
	if ok {
		fmt.Println("PASS: stock conserved, no oversell")
	}
}

func seed(ctx context.Context, db *sql.DB, rdb *redis.Client, stock int) {
	rdb.Del(ctx, "price:"+loadSku)

	if _, err := db.ExecContext(ctx, `
		INSERT INTO products (sku, name, price, active) VALUES (?, 'load test product', '10.00', 1)
		ON DUPLICATE KEY UPDATE price = '10.00', active = 1`, loadSku); err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO inventory (sku, available_stock, reserved_stock, version) VALUES (?, ?, 0, 0)
		ON DUPLICATE KEY UPDATE available_stock = ?, reserved_stock = 0, version = 0`,
		loadSku, stock, stock); err != nil {
		log.Fatalf("failed to seed inventory: %v", err)
	}
}

// settle polls until every placed order leaves PENDING or the timeout hits.
func settle(ctx context.Context, orders *service.OrderService, ids []uuid.UUID, timeout time.Duration) (confirmed, cancelled, pending int) {
	deadline := time.Now().Add(timeout)
	remaining := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		remaining[id] = true
	}

	for len(remaining) > 0 && time.Now().Before(deadline) {
		for id := range remaining {
			order, err := orders.GetOrder(ctx, id)
			if err != nil {
				continue
			}
			switch order.Status() {
			case domain.OrderStatusConfirmed:
				confirmed++
				delete(remaining, id)
			case domain.OrderStatusCancelled:
				cancelled++
				delete(remaining, id)
			}
		}
		if len(remaining) > 0 {
			time.Sleep(100 * time.Millisecond)
		}
	}
	return confirmed, cancelled, len(remaining)
}
