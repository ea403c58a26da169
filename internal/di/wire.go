//go:build wireinject
// +build wireinject

package di

import (
	"PriceCast/pkg/config"
	"PriceCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideClock,

		// Infrastructure clients
		ProvideCache,
		ProvideMarketData,
		ProvideForecaster,
		ProvideRunPublisher,

		// Use cases
		ProvideCollector,
		ProvideFetcher,
		ProvideAdapter,
		ProvideExporter,
		ProvideDashboard,

		// Delivery
		ProvideRenderer,
		ProvideLimiter,
		ProvideHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil, nil
}
