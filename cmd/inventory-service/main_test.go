package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shopflow/internal/app"
)

func TestReadConfigFromEnv(t *testing.T) {
	env := map[string]string{
		envStockDriver: "Redis",
		envRedisAddr:   "redis:6379",
		envRedisDB:     "2",
		envSeed:        "iphone_13=10,iphone_13_red=0",
	}
	cfg, warnings := readConfigFromEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	require.Empty(t, warnings)
	assert.Equal(t, app.StockDriverRedis, cfg.StockDriver)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, map[string]int64{"iphone_13": 10, "iphone_13_red": 0}, cfg.Seed)
	assert.Equal(t, ":8082", cfg.HTTPAddr)
	require.NoError(t, cfg.Validate())
}

func TestReadConfigFromEnv_BadSeed(t *testing.T) {
	cfg, warnings := readConfigFromEnv(func(key string) (string, bool) {
		if key == envSeed {
			return "iphone_13", true
		}
		return "", false
	})

	require.Len(t, warnings, 1)
	assert.Nil(t, cfg.Seed)
}
