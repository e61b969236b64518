package di

import (
	"context"
	"fmt"
	"time"

	"PillarCast/internal/domain/models"
	"PillarCast/internal/domain/repository"
	domsvc "PillarCast/internal/domain/service"
	"PillarCast/internal/handler/api"
	internalrepo "PillarCast/internal/repository"
	"PillarCast/internal/service/binance"
	"PillarCast/internal/service/broadcast"
	"PillarCast/internal/service/cache"
	"PillarCast/internal/service/coingecko"
	"PillarCast/internal/service/ephemeris"
	"PillarCast/internal/service/feargreed"
	"PillarCast/internal/service/ratelimit"
	"PillarCast/internal/service/telegram"
	"PillarCast/internal/service/weights"
	"PillarCast/internal/services/analytics"
	"PillarCast/internal/services/astrology"
	"PillarCast/internal/services/normalize"
	"PillarCast/internal/services/scoring"
	"PillarCast/internal/usecase"
	pkgch "PillarCast/pkg/clickhouse"
	"PillarCast/pkg/config"
	xhttp "PillarCast/pkg/http"
	pkgkafka "PillarCast/pkg/kafka"
	applogger "PillarCast/pkg/logger"
	"PillarCast/pkg/metrics"
	"PillarCast/pkg/server"
	pkgsqlite "PillarCast/pkg/sqlite"
	"PillarCast/pkg/tracing"
)

const startupTimeout = 10 * time.Second

// Storage holds the backend-specific stores selected by backend.type.
type Storage struct {
	Predictions repository.PredictionStore
	Samples     repository.SampleStore
}

// Publishers are the external transports a persisted record is forwarded to.
type Publishers []repository.Publisher

// ProvideLogger creates the structured application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: "pillarcast",
	})
}

// ProvideTracing installs the OTLP tracer provider when an endpoint is set.
func ProvideTracing(cfg *config.Config) (tracing.ShutdownFunc, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	return tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
		Insecure:    cfg.Tracing.Insecure,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStorage opens the configured backend and initializes its schema.
func ProvideStorage(cfg *config.Config, l *applogger.Logger) (*Storage, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	switch cfg.Backend.Type {
	case "clickhouse":
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithPool(10, 5, 0),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		preds := internalrepo.NewCHPredictionStore(client, cfg.ClickHouse.Database, l)
		if err := preds.Init(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				l.Warn("clickhouse close error", applogger.Error(err))
			}
		}
		return &Storage{Predictions: preds, Samples: internalrepo.NewCHSampleStore(client, cfg.ClickHouse.Database)}, cleanup, nil

	default:
		client, err := pkgsqlite.NewClient(pkgsqlite.WithPath(cfg.SQLite.Path))
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite client: %w", err)
		}
		preds := internalrepo.NewSQLitePredictionStore(client, l)
		if err := preds.Init(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("sqlite schema: %w", err)
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				l.Warn("sqlite close error", applogger.Error(err))
			}
		}
		return &Storage{Predictions: preds, Samples: internalrepo.NewSQLiteSampleStore(client)}, cleanup, nil
	}
}

func ProvidePredictionStore(s *Storage) repository.PredictionStore { return s.Predictions }

func ProvideSampleStore(s *Storage) repository.SampleStore { return s.Samples }

// ProvidePublishers creates the Kafka publisher when Kafka is enabled.
func ProvidePublishers(cfg *config.Config, l *applogger.Logger) (Publishers, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopics(cfg.Kafka.AutoCreateTopics),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaPublisher(producer, cfg.Kafka.PredictionsTopic)
	cleanup := func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return Publishers{pub}, cleanup, nil
}

// ProvideRateLimiter configures one sliding-window quota per provider.
func ProvideRateLimiter(cfg *config.Config, m repository.Metrics) *ratelimit.Limiter {
	return ratelimit.New(
		ratelimit.WithQuota(binance.Name, cfg.Providers.Binance.QuotaPerMinute),
		ratelimit.WithQuota(coingecko.Name, cfg.Providers.CoinGecko.QuotaPerMinute),
		ratelimit.WithQuota(feargreed.Name, cfg.Providers.FearGreed.QuotaPerMinute),
		ratelimit.WithQuota(astrology.AdapterName, cfg.Providers.Ephemeris.QuotaPerMinute),
		ratelimit.WithWaitObserver(func(provider string, waited time.Duration) {
			m.RecordRateLimitWait(provider, waited.Seconds())
		}),
	)
}

// ProvideResponseCache backs the response cache with Redis when enabled,
// with process memory otherwise.
func ProvideResponseCache(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (*cache.ResponseCache, func(), error) {
	var (
		store   cache.BytesCache
		cleanup = func() {}
	)
	if cfg.Redis.Enabled {
		rc := cache.NewRedisCache(cache.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		store = rc
		cleanup = func() {
			if err := rc.Close(); err != nil {
				l.Warn("redis close error", applogger.Error(err))
			}
		}
	} else {
		store = cache.NewTTLCache()
	}
	c := cache.NewResponseCache(store, l)
	c.SetObserver(m.RecordCacheLookup)
	return c, cleanup, nil
}

// ProvideAdapters binds every enabled provider to its cache TTL.
func ProvideAdapters(cfg *config.Config) []usecase.AdapterBinding {
	p := cfg.Providers
	var out []usecase.AdapterBinding
	if !p.Binance.Disabled {
		out = append(out, usecase.AdapterBinding{
			Adapter: binance.New(p.Binance.BaseURL, p.Binance.APIKey, cfg.Asset.Symbol, p.Binance.Timeout),
			TTL:     p.Binance.CacheTTL,
		})
	}
	if !p.CoinGecko.Disabled {
		out = append(out, usecase.AdapterBinding{
			Adapter: coingecko.New(p.CoinGecko.BaseURL, p.CoinGecko.APIKey, cfg.Asset.CoinGeckoID, p.CoinGecko.Timeout),
			TTL:     p.CoinGecko.CacheTTL,
		})
	}
	if !p.FearGreed.Disabled {
		out = append(out, usecase.AdapterBinding{
			Adapter: feargreed.New(p.FearGreed.BaseURL, p.FearGreed.Timeout),
			TTL:     p.FearGreed.CacheTTL,
		})
	}
	if !p.Ephemeris.Disabled {
		out = append(out, usecase.AdapterBinding{
			Adapter: astrology.NewAdapter(astrology.NewIndex(ephemeris.New()), nil),
			TTL:     p.Ephemeris.CacheTTL,
		})
	}
	return out
}

// ProvideNormalizationEngine seeds the engine with static bounds; configured
// bounds override the built-in ones.
func ProvideNormalizationEngine(cfg *config.Config, l *applogger.Logger) *normalize.Engine {
	static := make(map[string]models.NormalizationBounds)
	for _, b := range normalize.DefaultStaticBounds() {
		static[b.MetricName] = b
	}
	for metric, b := range cfg.Normalization.StaticBounds {
		static[metric] = models.NormalizationBounds{MetricName: metric, Min: b[0], Max: b[1]}
	}
	out := make([]models.NormalizationBounds, 0, len(static))
	for _, b := range static {
		out = append(out, b)
	}
	return normalize.NewEngine(out, l)
}

// ProvideScorer builds the scorer from YAML, falling back to the defaults per pillar.
func ProvideScorer(cfg *config.Config) (*scoring.Scorer, error) {
	defs, err := scoring.FromConfig(cfg.Scoring.Pillars)
	if err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	return scoring.NewScorer(defs)
}

// ProvideMovePredictor prefers the model service and falls back to the linear mapping.
func ProvideMovePredictor(cfg *config.Config) domsvc.MovePredictor {
	if cfg.Prediction.ModelURL != "" {
		return analytics.NewHTTPMovePredictor(analytics.NewHTTPServiceBase(cfg.Prediction.ModelURL, cfg.Prediction.ModelTimeout, 2))
	}
	return analytics.NewLinearMovePredictor(cfg.Prediction.LinearSensitivity)
}

func ProvideWeightSupplier(cfg *config.Config) *weights.Supplier {
	return weights.NewSupplier(cfg.Prediction.WeightsMaxAge)
}

// ProvideComposer enables dynamic weights only when their Kafka feed is on.
func ProvideComposer(cfg *config.Config, predictor domsvc.MovePredictor, supplier *weights.Supplier, l *applogger.Logger) (*usecase.PredictionComposer, error) {
	fw := cfg.Prediction.FixedWeights
	ccfg := usecase.ComposerConfig{
		FixedWeights: models.PillarWeights{
			Technical:   fw.Technical,
			Social:      fw.Social,
			Fundamental: fw.Fundamental,
			Astrology:   fw.Astrology,
		},
		BullishThreshold: cfg.Prediction.BullishThreshold,
		BearishThreshold: cfg.Prediction.BearishThreshold,
	}
	var opts []usecase.ComposerOption
	if cfg.Kafka.Enabled {
		opts = append(opts, usecase.WithWeightSupplier(supplier))
	}
	return usecase.NewPredictionComposer(ccfg, predictor, l, opts...)
}

func ProvideHub(cfg *config.Config, l *applogger.Logger) *broadcast.Hub {
	return broadcast.NewHub(cfg.Broadcast.Buffer, l)
}

func ProvidePredictionSink(store repository.PredictionStore, hub *broadcast.Hub, m repository.Metrics, l *applogger.Logger, pubs Publishers) *usecase.PredictionSink {
	return usecase.NewPredictionSink(store, hub, m, l, pubs...)
}

func ProvideIngestionCycle(
	cfg *config.Config,
	adapters []usecase.AdapterBinding,
	limiter *ratelimit.Limiter,
	rc *cache.ResponseCache,
	engine *normalize.Engine,
	scorer *scoring.Scorer,
	composer *usecase.PredictionComposer,
	sink *usecase.PredictionSink,
	samples repository.SampleStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.IngestionCycle {
	return usecase.NewIngestionCycle(adapters, limiter, rc, engine, scorer, composer, sink, m, cfg.Cycle.Timeout, l,
		usecase.WithSampleStore(samples),
	)
}

func ProvideBoundsRefresher(cfg *config.Config, samples repository.SampleStore, engine *normalize.Engine, scorer *scoring.Scorer, l *applogger.Logger) *usecase.BoundsRefresher {
	return usecase.NewBoundsRefresher(samples, engine, scorer.RequiredMetrics(), cfg.Normalization.Lookback, l)
}

func ProvidePredictionsQuery(store repository.PredictionStore, engine *normalize.Engine) *usecase.PredictionsQuery {
	return usecase.NewPredictionsQuery(store, engine)
}

func ProvideHTTPHandler(l *applogger.Logger, q *usecase.PredictionsQuery, hub *broadcast.Hub) xhttp.Handler {
	return api.NewPredictionsHandler(l, q, hub)
}

// ProvideKafkaConsumer creates the dynamic-weights consumer; nil when Kafka is off.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset("latest"),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideKafkaWeightsHandler(cfg *config.Config, supplier *weights.Supplier, m repository.Metrics, l *applogger.Logger) pkgkafka.MessageHandler {
	return usecase.NewKafkaWeightsHandler(cfg.Kafka.WeightsTopic, supplier, m, l)
}

// ProvideNotifier connects the Telegram bot when enabled, seeded with the
// category of the newest stored record.
func ProvideNotifier(cfg *config.Config, store repository.PredictionStore, l *applogger.Logger) (*telegram.Notifier, error) {
	if !cfg.Telegram.Enabled {
		return nil, nil
	}
	opts := []telegram.Option{telegram.WithRetry(cfg.Telegram.MaxRetries, time.Second)}
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if latest, err := store.Latest(ctx); err == nil && latest != nil {
		opts = append(opts, telegram.WithInitialCategory(latest.Category))
	}
	return telegram.NewBotNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, l, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	cycle *usecase.IngestionCycle,
	refresher *usecase.BoundsRefresher,
	sink *usecase.PredictionSink,
	hub *broadcast.Hub,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	notifier *telegram.Notifier,
	handler xhttp.Handler,
	shutdownTracing tracing.ShutdownFunc,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, cycle, refresher, sink, hub, consumer, kh, notifier, handler, shutdownTracing, l)
}
