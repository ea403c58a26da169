package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	MarketData struct {
		BaseURL      string        `yaml:"base_url" default:"https://query2.finance.yahoo.com"`
		Timeout      time.Duration `yaml:"timeout" default:"15s"`
		UserAgent    string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; PriceCast/1.0)"`
		Symbols      []string      `yaml:"symbols" default:"[\"BTC-USD\",\"ETH-USD\",\"ADA-USD\"]"`
		DefaultStart string        `yaml:"default_start" default:"2018-01-01"`
	} `yaml:"market_data"`
	Forecast struct {
		Engine          string        `yaml:"engine" default:"local"`
		ServiceURL      string        `yaml:"service_url"`
		Timeout         time.Duration `yaml:"timeout" default:"60s"`
		IntervalWidth   float64       `yaml:"interval_width" default:"0.8"`
		MinHorizonYears int           `yaml:"min_horizon_years" default:"1"`
		MaxHorizonYears int           `yaml:"max_horizon_years" default:"4"`
	} `yaml:"forecast"`
	Cache struct {
		Backend string        `yaml:"backend" default:"memory"`
		MaxSize int           `yaml:"max_size" default:"256"`
		CSVTTL  time.Duration `yaml:"csv_ttl" default:"24h"`
		Redis   struct {
			Addr         string        `yaml:"addr" default:"localhost:6379"`
			Password     string        `yaml:"password"`
			DB           int           `yaml:"db"`
			Prefix       string        `yaml:"prefix" default:"pricecast"`
			PoolSize     int           `yaml:"pool_size" default:"10"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
			PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Events struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"pricecast.runs"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		Async        bool          `yaml:"async" default:"true"`
	} `yaml:"events"`
	RateLimit struct {
		Enabled      bool    `yaml:"enabled" default:"true"`
		Capacity     float64 `yaml:"capacity" default:"20"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"2"`
	} `yaml:"ratelimit"`
}

// Default returns a config populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Missing keys take their defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env (if present), then YAML, then overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("PRICECAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("PRICECAST_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := getenv("PRICECAST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("PRICECAST_SYMBOLS"); v != "" {
		c.MarketData.Symbols = splitList(v)
	}
	if v := getenv("PRICECAST_FORECAST_ENGINE"); v != "" {
		c.Forecast.Engine = v
	}
	if v := getenv("PRICECAST_FORECAST_URL"); v != "" {
		c.Forecast.ServiceURL = v
	}
	if v := getenv("PRICECAST_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Brokers = splitList(v)
		c.Events.Enabled = true
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Events.Topic = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if len(c.MarketData.Symbols) == 0 {
		return fmt.Errorf("market_data.symbols cannot be empty")
	}
	if c.MarketData.BaseURL == "" {
		return fmt.Errorf("market_data.base_url is required")
	}
	if _, err := time.Parse("2006-01-02", c.MarketData.DefaultStart); err != nil {
		return fmt.Errorf("market_data.default_start must be YYYY-MM-DD, got '%s'", c.MarketData.DefaultStart)
	}
	switch c.Forecast.Engine {
	case "local":
	case "prophet":
		if c.Forecast.ServiceURL == "" {
			return fmt.Errorf("forecast.service_url is required for engine 'prophet'")
		}
	default:
		return fmt.Errorf("forecast.engine must be 'local' or 'prophet', got '%s'", c.Forecast.Engine)
	}
	if c.Forecast.IntervalWidth <= 0 || c.Forecast.IntervalWidth >= 1 {
		return fmt.Errorf("forecast.interval_width must be in (0,1), got %v", c.Forecast.IntervalWidth)
	}
	if c.Forecast.MinHorizonYears < 1 || c.Forecast.MaxHorizonYears < c.Forecast.MinHorizonYears {
		return fmt.Errorf("forecast horizon bounds invalid: [%d,%d]", c.Forecast.MinHorizonYears, c.Forecast.MaxHorizonYears)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	if c.Cache.Redis.PoolSize < 1 || c.Cache.Redis.MinIdleConns < 0 {
		return fmt.Errorf("cache.redis pool invalid: size %d, min idle %d", c.Cache.Redis.PoolSize, c.Cache.Redis.MinIdleConns)
	}
	if c.Cache.CSVTTL < 0 {
		return fmt.Errorf("cache.csv_ttl must not be negative")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers required when events are enabled")
	}
	return nil
}
