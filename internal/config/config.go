package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every setting the API reads from the environment.
type Config struct {
	AppEnv   string
	LogLevel string
	HTTPPort int

	DatabaseURL    string
	DBMaxOpenConns int

	RedisURL string
	CacheTTL time.Duration

	AMQPURL string

	JWTSecret string
	JWTTTL    time.Duration

	RequestTimeout    time.Duration
	LowStockThreshold int
	TaxRate           decimal.Decimal
	Currency          string
}

// Load reads .env (when present) and then the process environment.
func Load() Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPPort: getEnvInt("APP_PORT", 8080),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 20),

		RedisURL: os.Getenv("REDIS_URL"),
		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		AMQPURL: os.Getenv("AMQP_URL"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret"),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		LowStockThreshold: getEnvInt("LOW_STOCK_THRESHOLD", 5),
		TaxRate:           getEnvDecimal("ORDER_TAX_RATE", decimal.RequireFromString("0.16")),
		Currency:          getEnv("CURRENCY", "ZMW"),
	}
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.AppEnv == "production" && (c.JWTSecret == "" || c.JWTSecret == "dev-secret") {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.TaxRate.IsNegative() {
		return errors.New("ORDER_TAX_RATE must not be negative")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}
