//go:build wireinject
// +build wireinject

package di

import (
	"PillarCast/pkg/config"
	"PillarCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideTracing,
		ProvideMetrics,

		// Infrastructure clients
		ProvideStorage,
		ProvidePredictionStore,
		ProvideSampleStore,
		ProvidePublishers,
		ProvideRateLimiter,
		ProvideResponseCache,
		ProvideKafkaConsumer,

		// Domain services
		ProvideAdapters,
		ProvideNormalizationEngine,
		ProvideScorer,
		ProvideMovePredictor,
		ProvideWeightSupplier,
		ProvideHub,
		ProvideNotifier,

		// Use cases
		ProvideComposer,
		ProvidePredictionSink,
		ProvideIngestionCycle,
		ProvideBoundsRefresher,
		ProvidePredictionsQuery,
		ProvideKafkaWeightsHandler,

		// Delivery
		ProvideHTTPHandler,
		ProvideApp,
	)
	return nil, nil, nil
}
