// API server entry point for molfrag.
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
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/molfrag/internal/interfaces/http"
	"github.com/turtacn/molfrag/internal/interfaces/http/handlers"
)

// version is set via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	purge := flag.Bool("purge-cache", false, "drop cached fragment results on startup")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Log.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *configPath, *purge, logger); err != nil {
		logger.Error("API server exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, purge bool, logger logging.Logger) error {
	logger.Info("starting molfrag API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.Strings("rules", cfg.Fragmentation.Rules))

	gin.SetMode(cfg.Server.Mode)

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

	var (
		serviceOpts []appFrag.Option
		checkers    []handlers.HealthChecker
	)
	if metrics != nil {
		serviceOpts = append(serviceOpts, appFrag.WithMetrics(metrics))
	}
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			// The engine is self-sufficient; run uncached rather than not at all.
			logger.Warn("result cache disabled", logging.Err(err))
		} else {
			defer func() { _ = client.Close() }()
			cache := redis.NewCacheFromConfig(client, cfg.Redis, logger)
			if purge {
				n, err := appFrag.PurgeCache(context.Background(), cache)
				if err != nil {
					logger.Warn("cache purge failed", logging.Err(err))
				} else {
					logger.Info("purged cached fragment results", logging.Int64("keys", n))
				}
			}
			serviceOpts = append(serviceOpts, appFrag.WithCache(cache, cfg.Redis.DefaultTTL))
			checkers = append(checkers, handlers.NewPingChecker("redis", client.Ping, client.PoolStats))
		}
	}

	fragmenterOpts := []domainFrag.FragmenterOption{}
	if metrics != nil {
		fragmenterOpts = append(fragmenterOpts, domainFrag.WithMetrics(metrics))
	}
	service := appFrag.NewService(
		domainFrag.NewFragmenter(logger.Named("fragmenter"), fragmenterOpts...),
		cfg.Fragmentation,
		logger.Named("service"),
		serviceOpts...,
	)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		FragmentHandler:  handlers.NewFragmentHandler(service, logger),
		HealthHandler:    handlers.NewHealthHandler(version, checkers...),
		Logger:           logger.Named("http"),
		Metrics:          metrics,
		MetricsCollector: collector,
		MaxBodySize:      cfg.Server.MaxBodySize,
	})
	server := httpserver.NewServer(cfg.Server, router, logger)

	if configPath != "" {
		err := config.Watch(configPath, func(next *config.Config) {
			logger.Warn("configuration file changed; restart to apply",
				logging.String("path", configPath),
				logging.Strings("rules", next.Fragmentation.Rules),
				logging.String("error_policy", next.Fragmentation.ErrorPolicy))
		}, func(err error) {
			logger.Error("ignoring invalid configuration revision", logging.Err(err))
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received shutdown signal", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		return err
	}
	logger.Info("API server stopped")
	return nil
}
