package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Cleanup  CleanupConfig
	Stock    StockConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// RedisConfig is optional; an empty Addr disables the cleanup lease and the
// stock-alert dedup falls back to the in-process guard.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AMQPConfig is optional; an empty URL disables the order-event consumer.
type AMQPConfig struct {
	URL   string
	Queue string
}

type CleanupConfig struct {
	RetentionDays int
	MinInterval   time.Duration
	BatchSize     int
	LazyThreshold int64
	TickInterval  time.Duration
}

type StockConfig struct {
	DedupWindow time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8090"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", "shoply:shoply@tcp(localhost:3306)/shoply?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_SECRET", "change-me-in-production"),
			AccessExpiry: 15 * time.Minute,
			Issuer:       "shoply",
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AMQP: AMQPConfig{
			URL:   getEnv("AMQP_URL", ""),
			Queue: getEnv("AMQP_QUEUE", "shoply.order.events"),
		},
		Cleanup: CleanupConfig{
			RetentionDays: getEnvInt("CLEANUP_RETENTION_DAYS", 30),
			MinInterval:   getEnvDuration("CLEANUP_MIN_INTERVAL", 6*time.Hour),
			BatchSize:     getEnvInt("CLEANUP_BATCH_SIZE", 500),
			LazyThreshold: int64(getEnvInt("CLEANUP_LAZY_THRESHOLD", 1000)),
			TickInterval:  getEnvDuration("CLEANUP_TICK_INTERVAL", time.Hour),
		},
		Stock: StockConfig{
			DedupWindow: getEnvDuration("STOCK_DEDUP_WINDOW", 5*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
