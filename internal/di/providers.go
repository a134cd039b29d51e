package di

import (
	"context"
	"fmt"
	"time"

	"Prism/internal/domain/repository"
	domsvc "Prism/internal/domain/service"
	"Prism/internal/handler/api"
	mid "Prism/internal/middleware"
	internalrepo "Prism/internal/repository"
	icache "Prism/internal/service/cache"
	"Prism/internal/service/ratelimit"
	"Prism/internal/service/synth"
	"Prism/internal/services/analytics"
	"Prism/internal/services/density"
	"Prism/internal/usecase"
	pkgch "Prism/pkg/clickhouse"
	"Prism/pkg/config"
	xhttp "Prism/pkg/http"
	pkgkafka "Prism/pkg/kafka"
	applogger "Prism/pkg/logger"
	"Prism/pkg/metrics"
	"Prism/pkg/server"
)

// ProvideLogger builds the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideBytesCache returns a memory+Redis layered cache when Redis is
// enabled and reachable, otherwise an in-process TTL cache.
func ProvideBytesCache(cfg *config.Config, l *applogger.Logger) icache.BytesCache {
	if !cfg.Cache.Redis.Enabled {
		return icache.NewTTLCache()
	}
	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		l.Warn("redis unavailable, using in-memory cache", applogger.String("addr", cfg.Cache.Redis.Addr), applogger.Error(err))
		_ = rc.Close()
		return icache.NewTTLCache()
	}
	l.Info("redis cache connected", applogger.String("addr", cfg.Cache.Redis.Addr))
	return icache.NewLayeredCache(icache.NewTTLCache(), rc, 30*time.Second)
}

// ProvideSynthClient creates the percentile forecast client.
func ProvideSynthClient(cfg *config.Config, c icache.BytesCache, l *applogger.Logger) *synth.Client {
	return synth.NewClient(synth.Config{
		BaseURL:  cfg.Synth.BaseURL,
		APIKey:   cfg.Synth.APIKey,
		Timeout:  cfg.Synth.Timeout,
		CacheTTL: cfg.Synth.CacheTTL,
		Days:     cfg.Synth.Days,
		Limit:    cfg.Synth.Limit,
		Assets:   cfg.Synth.Assets,
		Horizons: cfg.Synth.Horizons,
	}, c, l)
}

func ProvideConeCatalog(c *synth.Client) repository.ConeCatalog {
	return c
}

func ProvideRiskLevels(cfg *config.Config) domsvc.RiskLevels {
	return analytics.NewHTTPRiskLevels(cfg)
}

func ProvideGenerator(cfg *config.Config) *density.Generator {
	return density.NewGenerator(density.WithPriceAxisWidth(cfg.Render.PriceAxisWidth))
}

func ProvideSceneBuilder(gen *density.Generator, m repository.Metrics) *usecase.SceneBuilder {
	return usecase.NewSceneBuilder(gen, m)
}

func ProvideSceneHub(cfg *config.Config) *usecase.SceneHub {
	return usecase.NewSceneHub(cfg.Render.SubscriberBuf)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when render
// history is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideConeStore creates the render history table. Returns nil without a
// ClickHouse client.
func ProvideConeStore(client *pkgch.Client, l *applogger.Logger) (repository.ConeStore, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewCHConeStore(client.DB(), client.Database(), l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

func ProvideSceneUpdater(b *usecase.SceneBuilder, store repository.ConeStore, hub *usecase.SceneHub, m repository.Metrics, l *applogger.Logger) *usecase.SceneUpdater {
	return usecase.NewSceneUpdater(b, store, hub, m, l)
}

// ProvideKafkaProducer creates a Kafka producer for the kafka backend only.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != usecase.BackendKafka {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideConePublisher wraps the producer; nil when there is none.
func ProvideConePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ConePublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaConePublisher(producer, cfg.Kafka.Topic)
}

func ProvideConeProcessor(pub repository.ConePublisher, u *usecase.SceneUpdater, m repository.Metrics, cfg *config.Config) *usecase.ConeProcessor {
	return usecase.NewConeProcessor(pub, u, m, cfg.Backend.Type)
}

// ProvideConeCollector puts the validation/throttle pipeline between the
// forecast poller and the processor.
func ProvideConeCollector(cat repository.ConeCatalog, p *usecase.ConeProcessor, m repository.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.ConeCollector {
	pipe := mid.NewConePipeline(p, m,
		mid.WithThrottleWindow(cfg.Render.ThrottleWindow),
		mid.WithBufferSize(64),
	)
	return usecase.NewConeCollector(cat, pipe, usecase.Targets(cat), cfg.Synth.PollInterval, cfg.Synth.ConePoints, m, l)
}

// ProvideKafkaConsumer creates the scene consumer for the kafka backend only.
func ProvideKafkaConsumer(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != usecase.BackendKafka {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(ConsumerHook(m))
	return consumer, nil
}

func ProvideKafkaConeHandler(cfg *config.Config, u *usecase.SceneUpdater, m repository.Metrics) pkgkafka.MessageHandler {
	return usecase.NewKafkaConeHandler(cfg.Kafka.Topic, u, m)
}

func ProvideSceneService(cat repository.ConeCatalog, b *usecase.SceneBuilder, risk domsvc.RiskLevels, cfg *config.Config, l *applogger.Logger) *usecase.SceneService {
	return usecase.NewSceneService(cat, b, risk, cfg.Synth.ConePoints, l)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.Refill, 10*time.Minute)
}

// ProvideHTTPHandler registers the scene routes.
func ProvideHTTPHandler(
	l *applogger.Logger,
	svc *usecase.SceneService,
	hub *usecase.SceneHub,
	store repository.ConeStore,
	rl *ratelimit.Limiter,
	m repository.Metrics,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewSceneHandler(l, svc, hub, store, rl, m, cfg.Render.FrameRate)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.ConeCollector,
	processor *usecase.ConeProcessor,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	store repository.ConeStore,
	chClient *pkgch.Client,
	cache icache.BytesCache,
	hub *usecase.SceneHub,
	rl *ratelimit.Limiter,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, collector, processor, consumer, kh, store, chClient, cache, hub, rl, handler)
}
