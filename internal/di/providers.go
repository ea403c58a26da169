package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PriceCast/internal/domain/repository"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/internal/handler/api"
	"PriceCast/internal/presentation"
	internalrepo "PriceCast/internal/repository"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/service/yahoo"
	"PriceCast/internal/services/forecasting"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/cache"
	"PriceCast/pkg/clock"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	"PriceCast/pkg/http/middleware"
	pkgkafka "PriceCast/pkg/kafka"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/metrics"
	"PriceCast/pkg/server"
	xutil "PriceCast/pkg/util"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry shared by all collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideClock returns the wall clock.
func ProvideClock() clock.Clock {
	return clock.Real{}
}

// ProvideCache creates the memoization backend named by cache.backend.
func ProvideCache(cfg *config.Config, clk clock.Clock, l *applogger.Logger) (cache.Service, func(), error) {
	var svc cache.Service
	switch cfg.Cache.Backend {
	case "redis", "layered":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rc, err := cache.NewRedisCache(ctx,
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
			cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdleConns, cfg.Cache.Redis.PoolTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = rc
		if cfg.Cache.Backend == "layered" {
			svc = cache.NewLayeredCache(rc,
				cache.WithLayeredMemorySize(cfg.Cache.MaxSize),
				cache.WithLayeredClock(clk),
				cache.WithLayeredPinned(usecase.PricesKeyPrefix),
			)
		}
	default:
		svc = cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MaxSize),
			cache.WithMemoryClock(clk),
			cache.WithMemoryCleanup(time.Minute),
			cache.WithMemoryPinned(usecase.PricesKeyPrefix),
		)
	}
	l.Info("cache ready", applogger.String("backend", cfg.Cache.Backend), applogger.Int("max_size", cfg.Cache.MaxSize))

	cleanup := func() {
		if err := svc.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}
	return svc, cleanup, nil
}

// ProvideMarketData creates the Yahoo chart API client.
func ProvideMarketData(cfg *config.Config, l *applogger.Logger) repository.MarketData {
	c := yahoo.New(
		yahoo.WithBaseURL(cfg.MarketData.BaseURL),
		yahoo.WithUserAgent(cfg.MarketData.UserAgent),
		yahoo.WithTimeout(cfg.MarketData.Timeout),
	)
	c.SetLogger(l)
	return c
}

// ProvideForecaster selects the model engine.
func ProvideForecaster(cfg *config.Config) (domsvc.Forecaster, error) {
	return forecasting.NewFromConfig(cfg)
}

// ProvideCollector creates the input collector over the configured symbols.
func ProvideCollector(cfg *config.Config, clk clock.Clock) (*usecase.Collector, error) {
	start, ok := xutil.ParseDate(cfg.MarketData.DefaultStart)
	if !ok {
		return nil, fmt.Errorf("market_data.default_start %q is not YYYY-MM-DD", cfg.MarketData.DefaultStart)
	}
	return usecase.NewCollector(cfg.MarketData.Symbols,
		usecase.WithDefaultStart(start),
		usecase.WithHorizonBounds(cfg.Forecast.MinHorizonYears, cfg.Forecast.MaxHorizonYears),
		usecase.WithCollectorClock(clk),
	), nil
}

// ProvideFetcher creates the memoized data fetcher.
func ProvideFetcher(src repository.MarketData, c cache.Service, m repository.Metrics, clk clock.Clock) *usecase.Fetcher {
	return usecase.NewFetcher(src, c, m, clk)
}

// ProvideAdapter creates the forecast engine adapter.
func ProvideAdapter(model domsvc.Forecaster, m repository.Metrics) *usecase.Adapter {
	return usecase.NewAdapter(model, m)
}

// ProvideExporter creates the CSV export service.
func ProvideExporter(cfg *config.Config, c cache.Service, m repository.Metrics) *usecase.Exporter {
	return usecase.NewExporter(c, cfg.Cache.CSVTTL, m)
}

// ProvideRunPublisher creates the Kafka run publisher, or a no-op when events are disabled.
func ProvideRunPublisher(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (repository.RunPublisher, func(), error) {
	if !cfg.Events.Enabled {
		return internalrepo.NoopRunPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Events.Brokers),
		pkgkafka.WithCompression(cfg.Events.Compression),
		pkgkafka.WithRequiredAcks(cfg.Events.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Events.WriteTimeout, cfg.Events.WriteTimeout),
		pkgkafka.WithAsync(cfg.Events.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	l.Info("run events enabled", applogger.Strings("brokers", cfg.Events.Brokers), applogger.String("topic", cfg.Events.Topic))

	pub := internalrepo.NewKafkaRunPublisher(producer, cfg.Events.Topic)
	cleanup := func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return pub, cleanup, nil
}

// ProvideDashboard wires the pipeline.
func ProvideDashboard(
	collector *usecase.Collector,
	fetcher *usecase.Fetcher,
	adapter *usecase.Adapter,
	exporter *usecase.Exporter,
	pub repository.RunPublisher,
	m repository.Metrics,
	clk clock.Clock,
	l *applogger.Logger,
) *usecase.Dashboard {
	d := usecase.NewDashboard(collector, fetcher, adapter, exporter, pub, m, clk)
	d.SetLogger(l)
	return d
}

// ProvideRenderer creates the HTML renderer.
func ProvideRenderer(l *applogger.Logger) (*presentation.Renderer, error) {
	r, err := presentation.NewRenderer()
	if err != nil {
		return nil, err
	}
	r.SetLogger(l)
	return r, nil
}

// ProvideLimiter creates the per-client limiter, nil when disabled.
func ProvideLimiter(cfg *config.Config, clk clock.Clock) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec, clk)
}

// ProvideHandler creates the dashboard HTTP handler.
func ProvideHandler(
	l *applogger.Logger,
	dash *usecase.Dashboard,
	renderer *presentation.Renderer,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	return api.NewDashboardHandler(l, dash, renderer, limiter)
}

// ProvideHTTPServer creates the echo server with logging, metrics and CORS.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts,
			xhttp.WithMiddleware(middleware.NewHTTPMetrics(reg).Middleware(l, cfg.Server.SlowThreshold)),
			xhttp.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		)
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application.
func ProvideApp(cfg *config.Config, srv *xhttp.Server, l *applogger.Logger) *server.App {
	return server.New(cfg, srv, l)
}
