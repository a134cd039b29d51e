//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"Prism/pkg/config"
	"Prism/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideBytesCache,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories and collaborators
		ProvideSynthClient,
		ProvideConeCatalog,
		ProvideRiskLevels,
		ProvideConeStore,
		ProvideConePublisher,

		// Use cases
		ProvideGenerator,
		ProvideSceneBuilder,
		ProvideSceneHub,
		ProvideSceneUpdater,
		ProvideConeProcessor,
		ProvideConeCollector,
		ProvideKafkaConeHandler,
		ProvideSceneService,

		// HTTP
		ProvideRateLimiter,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
