package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, []string{"BTC-USD", "ETH-USD", "ADA-USD"}, c.MarketData.Symbols)
	assert.Equal(t, "2018-01-01", c.MarketData.DefaultStart)
	assert.Equal(t, "local", c.Forecast.Engine)
	assert.Equal(t, 0.8, c.Forecast.IntervalWidth)
	assert.Equal(t, 4, c.Forecast.MaxHorizonYears)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, 24*time.Hour, c.Cache.CSVTTL)
	assert.Equal(t, 10, c.Cache.Redis.PoolSize)
	assert.Equal(t, 15*time.Second, c.MarketData.Timeout)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
server:
  port: 9090
market_data:
  symbols: ["SOL-USD"]
cache:
  backend: redis
  redis:
    addr: cache:6379
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, []string{"SOL-USD"}, c.MarketData.Symbols)
	assert.Equal(t, "redis", c.Cache.Backend)
	assert.Equal(t, "cache:6379", c.Cache.Redis.Addr)
	assert.Equal(t, "pricecast", c.Cache.Redis.Prefix)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"engine":        "forecast:\n  engine: arima\n",
		"prophet url":   "forecast:\n  engine: prophet\n",
		"backend":       "cache:\n  backend: disk\n",
		"default start": "market_data:\n  default_start: 01/01/2018\n",
		"width":         "forecast:\n  interval_width: 1.5\n",
		"redis pool":    "cache:\n  redis:\n    pool_size: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	env := map[string]string{
		"PRICECAST_SYMBOLS": "BTC-USD, DOGE-USD",
		"PRICECAST_PORT":    "7000",
		"KAFKA_BROKERS":     "k1:9092,k2:9092",
		"REDIS_ADDR":        "r:6379",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, []string{"BTC-USD", "DOGE-USD"}, c.MarketData.Symbols)
	assert.Equal(t, 7000, c.Server.Port)
	assert.True(t, c.Events.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Events.Brokers)
	assert.Equal(t, "r:6379", c.Cache.Redis.Addr)
}
