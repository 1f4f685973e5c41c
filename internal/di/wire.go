//go:build wireinject
// +build wireinject

package di

import (
	"SigmaSync/pkg/config"
	"SigmaSync/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// The returned cleanup closes every external client.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Metrics
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideClickHouseClient,
		ProvideMirrorCache,

		// Sinks
		ProvideSinks,
		ProvideSinkPipeline,

		// Channels
		ProvidePushStream,
		ProvidePullSource,

		// Use cases
		ProvideCoreConfig,
		ProvideCore,

		// Read API
		ProvideLimiter,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}
