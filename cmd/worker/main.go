// Worker entry point for molfrag: consumes fragment requests from Kafka and
// publishes result envelopes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	appFrag "github.com/turtacn/molfrag/internal/application/fragmentation"
	"github.com/turtacn/molfrag/internal/config"
	domainFrag "github.com/turtacn/molfrag/internal/domain/fragmentation"
	"github.com/turtacn/molfrag/internal/infrastructure/database/redis"
	"github.com/turtacn/molfrag/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/molfrag/internal/interfaces/http"
	"github.com/turtacn/molfrag/internal/interfaces/http/handlers"
	"github.com/turtacn/molfrag/internal/interfaces/worker"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	healthPort := flag.Int("health-port", 9091, "port for /healthz, /readyz and /metrics (0 disables)")
	skipTopics := flag.Bool("skip-topic-setup", false, "do not create missing topics on startup")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *healthPort, !*skipTopics, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, healthPort int, ensureTopics bool, logger logging.Logger) error {
	logger.Info("starting molfrag worker",
		logging.String("version", version),
		logging.Strings("brokers", cfg.Kafka.Brokers),
		logging.String("request_topic", cfg.Kafka.RequestTopic),
		logging.String("result_topic", cfg.Kafka.ResultTopic))

	var (
		metrics   *prometheus.FragmentationMetrics
		collector prometheus.MetricsCollector
	)
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            cfg.Metrics.Subsystem,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return fmt.Errorf("metrics collector: %w", err)
		}
		collector = c
		metrics = prometheus.NewFragmentationMetrics(c)
	}

	if ensureTopics {
		setupTopics(cfg.Kafka, logger)
	}

	var (
		serviceOpts    []appFrag.Option
		fragmenterOpts []domainFrag.FragmenterOption
		checkers       []handlers.HealthChecker
	)
	if metrics != nil {
		serviceOpts = append(serviceOpts, appFrag.WithMetrics(metrics))
		fragmenterOpts = append(fragmenterOpts, domainFrag.WithMetrics(metrics))
	}
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("result cache disabled", logging.Err(err))
		} else {
			defer func() { _ = client.Close() }()
			serviceOpts = append(serviceOpts,
				appFrag.WithCache(redis.NewCacheFromConfig(client, cfg.Redis, logger), cfg.Redis.DefaultTTL))
			checkers = append(checkers, handlers.NewPingChecker("redis", client.Ping, client.PoolStats))
		}
	}
	service := appFrag.NewService(
		domainFrag.NewFragmenter(logger.Named("fragmenter"), fragmenterOpts...),
		cfg.Fragmentation,
		logger.Named("service"),
		serviceOpts...,
	)

	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger.Named("producer"))
	if err != nil {
		return fmt.Errorf("result producer: %w", err)
	}
	defer func() { _ = producer.Close() }()

	fragmentWorker := worker.NewFragmentWorker(service, producer, cfg.Kafka.ResultTopic, logger.Named("worker"))

	var consumerOpts []kafka.ConsumerOption
	if metrics != nil {
		consumerOpts = append(consumerOpts, kafka.WithConsumerMetrics(metrics))
	}
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(cfg.Kafka), fragmentWorker.Handle, logger.Named("consumer"), consumerOpts...)
	if err != nil {
		return fmt.Errorf("request consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	var healthServer *httpserver.Server
	errCh := make(chan error, 1)
	if healthPort > 0 {
		gin.SetMode(cfg.Server.Mode)
		healthCfg := cfg.Server
		healthCfg.Port = healthPort
		router := httpserver.NewRouter(httpserver.RouterConfig{
			HealthHandler:    handlers.NewHealthHandler(version, checkers...),
			Logger:           logger.Named("http"),
			MetricsCollector: collector,
		})
		healthServer = httpserver.NewServer(healthCfg, router, logger)
		go func() {
			errCh <- healthServer.Start()
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", logging.String("signal", sig.String()))
	case runErr = <-errCh:
	}

	cancel()
	if err := consumer.Close(); err != nil {
		logger.Warn("consumer close failed", logging.Err(err))
	}
	stats := consumer.Stats()
	logger.Info("consumer stopped",
		logging.Int64("consumed", stats.MessagesConsumed),
		logging.Int64("processed", stats.MessagesProcessed),
		logging.Int64("failed", stats.MessagesFailed),
		logging.Int64("dead_lettered", stats.MessagesDeadLettered))

	if healthServer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := healthServer.Stop(stopCtx); err != nil {
			logger.Warn("health server stop failed", logging.Err(err))
		}
	}
	return runErr
}

// setupTopics creates missing topics. Clusters that forbid topic creation
// are common, so failures only warn.
func setupTopics(cfg config.KafkaConfig, logger logging.Logger) {
	tm, err := kafka.NewTopicManager(cfg.Brokers, logger.Named("topics"))
	if err != nil {
		logger.Warn("topic setup skipped", logging.Err(err))
		return
	}
	defer func() { _ = tm.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := tm.EnsureTopics(ctx, kafka.WorkerTopics(cfg)); err != nil {
		logger.Warn("topic setup failed", logging.Err(err))
	}
}
