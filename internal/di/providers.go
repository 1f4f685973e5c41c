package di

import (
	"context"
	"fmt"
	"time"

	drepo "SigmaSync/internal/domain/repository"
	"SigmaSync/internal/handler/api"
	mid "SigmaSync/internal/middleware"
	internalrepo "SigmaSync/internal/repository"
	"SigmaSync/internal/service/poller"
	"SigmaSync/internal/service/ratelimit"
	"SigmaSync/internal/service/stream"
	"SigmaSync/internal/usecase"
	"SigmaSync/pkg/cache"
	pkgch "SigmaSync/pkg/clickhouse"
	"SigmaSync/pkg/config"
	xhttp "SigmaSync/pkg/http"
	pkgkafka "SigmaSync/pkg/kafka"
	applogger "SigmaSync/pkg/logger"
	"SigmaSync/pkg/metrics"
	"SigmaSync/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideRegistry creates the registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the domain metrics recorder. With metrics disabled
// it records into a registry nobody scrapes.
func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) drepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.NewWithRegistry(prometheus.NewRegistry())
	}
	return metrics.NewWithRegistry(reg)
}

// ProvideKafkaProducer creates the producer shared by the snapshot sink and
// the log collector. Nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, func(), error) {
	kc := cfg.Sinks.Kafka
	if !kc.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(kc.Brokers),
		pkgkafka.WithCompression(kc.Compression),
		pkgkafka.WithRequiredAcks(kc.RequiredAcks),
		pkgkafka.WithBatching(kc.Producer.BatchSize, kc.Producer.Linger),
		pkgkafka.WithBatchBytes(kc.Producer.BatchBytes),
		pkgkafka.WithTimeouts(kc.Producer.WriteTimeout, kc.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(kc.Producer.MaxAttempts),
		pkgkafka.WithAsync(kc.Producer.Async),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the application logger and, when enabled, attaches
// the collector that ships repeated warn/error lines to kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}
	return l, l.RemoveCollector, nil
}

// ProvideClickHouseClient opens the archive database and creates its
// schema. Nil when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	cc := cfg.Sinks.ClickHouse
	if !cc.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cc.Host),
		pkgch.WithPort(cc.Port),
		pkgch.WithDatabase(cc.Database),
		pkgch.WithCredentials(cc.User, cc.Password),
		pkgch.WithHTTP(cc.UseHTTP),
		pkgch.WithAsyncInsert(cc.AsyncInsert, cc.WaitForAsync),
		pkgch.WithTimeouts(cc.DialTimeout, cc.ReadTimeout, cc.WriteTimeout),
		pkgch.WithMaxExecutionTime(cc.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ArchiveSchema(cc.Database, cc.Table)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideMirrorCache opens the mirror backend: redis, or an in-process
// memory cache when sinks.redis.backend is memory. Nil when the mirror is
// disabled.
func ProvideMirrorCache(cfg *config.Config) (cache.Service, func(), error) {
	rc := cfg.Sinks.Redis
	if !rc.Enabled {
		return nil, func() {}, nil
	}
	if rc.Backend == "memory" {
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(rc.MemoryMaxSize))
		return mc, func() { _ = mc.Close() }, nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisHost(rc.Host),
		cache.WithRedisPort(rc.Port),
		cache.WithRedisPassword(rc.Password),
		cache.WithRedisDB(rc.DB),
		cache.WithRedisPrefix(rc.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, func() { _ = c.Close() }, nil
}

// ProvideSinks collects the enabled snapshot sinks.
func ProvideSinks(cfg *config.Config, producer *pkgkafka.Producer, ch *pkgch.Client, mirror cache.Service) []drepo.SnapshotSink {
	var sinks []drepo.SnapshotSink
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaPublisher(producer, cfg.Sinks.Kafka.Topic))
	}
	if ch != nil {
		sinks = append(sinks, internalrepo.NewClickHouseArchive(ch.DB(), cfg.Sinks.ClickHouse.Database, cfg.Sinks.ClickHouse.Table))
	}
	if mirror != nil {
		name := "redis"
		if cfg.Sinks.Redis.Backend == "memory" {
			name = "memory_mirror"
		}
		sinks = append(sinks, internalrepo.NewCacheMirror(name, mirror, cfg.Sinks.Redis.TTL, cfg.Sinks.Redis.History))
	}
	return sinks
}

func ProvideSinkPipeline(cfg *config.Config, sinks []drepo.SnapshotSink, m drepo.Metrics, l *applogger.Logger) *mid.SinkPipeline {
	return mid.NewSinkPipeline(sinks, m,
		mid.WithBufferSize(cfg.Sinks.BufferSize),
		mid.WithPipelineLogger(l),
	)
}

// ProvidePushStream creates the websocket push channel.
func ProvidePushStream(cfg *config.Config, l *applogger.Logger) drepo.PushStream {
	return stream.New(cfg.Upstream.PushURL, cfg.Upstream.PingInterval, stream.WithLogger(l))
}

// ProvidePullSource creates the HTTP pull channel.
func ProvidePullSource(cfg *config.Config) drepo.PullSource {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Upstream.RequestTimeout))
	return poller.NewHTTPSource(client, cfg.Upstream.PullURL)
}

// ProvideCoreConfig maps YAML settings onto the core.
func ProvideCoreConfig(cfg *config.Config) usecase.CoreConfig {
	up := cfg.Upstream
	backoff := usecase.FixedDelay(up.Reconnect.Delay)
	if up.Reconnect.Backoff.Enabled {
		backoff = usecase.BackoffPolicy{
			Delay:      up.Reconnect.Delay,
			Multiplier: up.Reconnect.Backoff.Multiplier,
			MaxDelay:   up.Reconnect.Backoff.MaxDelay,
		}
	}
	return usecase.CoreConfig{
		Capacity:       cfg.Store.Capacity,
		BootstrapLimit: up.BootstrapLimit,
		TopModels:      cfg.View.TopModels,
		TrendWindow:    cfg.View.TrendWindow,
		Transport: usecase.TransportConfig{
			Pull: poller.Config{
				Interval: up.PullInterval,
				Limit:    up.PullLimit,
				Timeout:  up.RequestTimeout,
			},
			Backoff: backoff,
		},
	}
}

func ProvideCore(
	ccfg usecase.CoreConfig,
	push drepo.PushStream,
	pull drepo.PullSource,
	pipe *mid.SinkPipeline,
	m drepo.Metrics,
	l *applogger.Logger,
) *usecase.SynchronizationCore {
	return usecase.NewSynchronizationCore(push, pull, ccfg,
		usecase.WithLogger(l),
		usecase.WithMetrics(m),
		usecase.WithSinks(pipe),
	)
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.PerSecond)
}

// ProvideHTTPServer builds the read API server.
func ProvideHTTPServer(
	cfg *config.Config,
	core *usecase.SynchronizationCore,
	limiter *ratelimit.Limiter,
	reg *prometheus.Registry,
	l *applogger.Logger,
) *xhttp.Server {
	h := api.NewSyncEchoHandler(l, core, ratelimit.Middleware(limiter))
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
		xhttp.WithRegistry(reg),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	core *usecase.SynchronizationCore,
	httpServer *xhttp.Server,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, core, httpServer, l)
}
