package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	HTTP   HTTPConfig
	MySQL  MySQLConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	Bus    BusConfig
	Retry  RetryConfig
	Sweep  SweepConfig
	Logger LoggerConfig
}

type HTTPConfig struct {
	Addr string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	PoolSize int
	PriceTTL time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type BusConfig struct {
	BufferSize     int
	HandlerTimeout time.Duration
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// SweepConfig drives the stuck-order recovery sweep: how often to scan and
// how long an order may sit in PENDING before it counts as stuck.
type SweepConfig struct {
	Interval  time.Duration
	Threshold time.Duration
}

type LoggerConfig struct {
	Level string
	Mode  string
}

// Load reads configuration from an optional config.yaml in the working
// directory plus OMS_-prefixed environment variables, with sensible
// defaults for local development.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("mysql.dsn", "root:root@tcp(localhost:3306)/oms?parseTime=true")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 25)
	v.SetDefault("mysql.conn_max_lifetime", "5m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.price_ttl", "60m")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "oms.events")

	v.SetDefault("bus.buffer_size", 1024)
	v.SetDefault("bus.handler_timeout", "10s")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "100ms")
	v.SetDefault("retry.multiplier", 2.0)

	v.SetDefault("sweep.interval", "5m")
	v.SetDefault("sweep.threshold", "15m")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", "production")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("OMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
		MySQL: MySQLConfig{
			DSN:             v.GetString("mysql.dsn"),
			MaxOpenConns:    v.GetInt("mysql.max_open_conns"),
			MaxIdleConns:    v.GetInt("mysql.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("mysql.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			PoolSize: v.GetInt("redis.pool_size"),
			PriceTTL: v.GetDuration("redis.price_ttl"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Bus: BusConfig{
			BufferSize:     v.GetInt("bus.buffer_size"),
			HandlerTimeout: v.GetDuration("bus.handler_timeout"),
		},
		Retry: RetryConfig{
			MaxAttempts: v.GetInt("retry.max_attempts"),
			BaseDelay:   v.GetDuration("retry.base_delay"),
			Multiplier:  v.GetFloat64("retry.multiplier"),
		},
		Sweep: SweepConfig{
			Interval:  v.GetDuration("sweep.interval"),
			Threshold: v.GetDuration("sweep.threshold"),
		},
		Logger: LoggerConfig{
			Level: v.GetString("logger.level"),
			Mode:  v.GetString("logger.mode"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn must be set")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 1.0 {
		return fmt.Errorf("retry.multiplier must be at least 1.0, got %v", c.Retry.Multiplier)
	}
	if c.Sweep.Interval <= 0 || c.Sweep.Threshold <= 0 {
		return fmt.Errorf("sweep interval and threshold must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must be set when kafka is enabled")
	}
	return nil
}
