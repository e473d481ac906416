package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Environment     string
	StorageDriver   string
	DBDSN           string
	DBMaxConns      int32
	HTTPAddr        string
	APIPrefix       string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	StatsCacheTTL   time.Duration
	StatsInterval   time.Duration
	TelegramToken   string
	RunMigrations   bool
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Environment:     getenv("ENV", "development"),
		StorageDriver:   getenv("STORAGE_DRIVER", StorageDriverPostgres),
		DBDSN:           os.Getenv("DB_DSN"),
		DBMaxConns:      int32(getenvInt("DB_MAX_CONNS", 10)),
		HTTPAddr:        getenv("HTTP_ADDR", ":3000"),
		APIPrefix:       getenv("API_PREFIX", "/api"),
		RequestTimeout:  getenvDuration("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getenvInt("REDIS_DB", 0),
		StatsCacheTTL:   getenvDuration("STATS_CACHE_TTL", 30*time.Second),
		StatsInterval:   getenvDuration("STATS_INTERVAL", 5*time.Minute),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		RunMigrations:   getenvBool("RUN_MIGRATIONS", true),
	}

	// Проверяем обязательные поля
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.DBMaxConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be positive, got %d", cfg.DBMaxConns)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
