package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("ORDER_TAX_RATE", "")

	cfg := Load()

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.16")))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("LOW_STOCK_THRESHOLD", "2")
	t.Setenv("ORDER_TAX_RATE", "0.05")

	cfg := Load()

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.LowStockThreshold)
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.05")))
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("APP_PORT", "eighty")
	t.Setenv("CACHE_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestValidate(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		err := Config{}.Validate()
		require.Error(t, err)
	})

	t.Run("dev secret refused in production", func(t *testing.T) {
		cfg := Config{AppEnv: "production", DatabaseURL: "postgres://x", JWTSecret: "dev-secret"}
		require.Error(t, cfg.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		cfg := Config{AppEnv: "dev", DatabaseURL: "postgres://x", JWTSecret: "s"}
		require.NoError(t, cfg.Validate())
	})
}
