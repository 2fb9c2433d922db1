package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/skisignal/internal/api/http"
	"github.com/i474232898/skisignal/internal/config"
	"github.com/i474232898/skisignal/internal/logging"
	"github.com/i474232898/skisignal/internal/observability"
	"github.com/i474232898/skisignal/internal/resort"
	"github.com/i474232898/skisignal/internal/scheduler"
	"github.com/i474232898/skisignal/internal/store"
	"github.com/i474232898/skisignal/internal/weather"
	"github.com/i474232898/skisignal/internal/weather/providers"
	"github.com/i474232898/skisignal/internal/weather/scoring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	err = run(cfg, logger)
	if err != nil {
		logger.Errorw("skisignal stopped", "error", err)
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *zap.SugaredLogger) error {
	registry, err := resort.Load(cfg.ResortsFile)
	if err != nil {
		return err
	}

	policy := scoring.DefaultPolicy()
	if cfg.ScoringPolicyFile != "" {
		if policy, err = scoring.LoadPolicyFromFile(cfg.ScoringPolicyFile); err != nil {
			return err
		}
	}

	metrics := observability.NewMetrics()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	var provider weather.ForecastProvider = providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoBaseURL, cfg.Backoff())
	if cfg.WeatherAPIKey != "" {
		fallback := providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, cfg.WeatherAPIBaseURL, cfg.Backoff())
		provider = providers.NewChain(logger.Named("providers"), provider, fallback)
	}

	cache := store.NewForecastCache(cfg.CacheMaxAge,
		store.WithLogger(logger.Named("cache")),
		store.WithMetrics(metrics),
		store.WithFetchTimeout(2*cfg.UpstreamTimeout),
	)

	service := weather.NewService(weather.Options{
		Registry:        registry,
		Provider:        provider,
		Scorer:          scoring.NewEngine(policy),
		Cache:           cache,
		SnowRatio:       cfg.SnowRatio,
		UpstreamTimeout: cfg.UpstreamTimeout,
		Logger:          logger.Named("weather"),
		Metrics:         metrics,
	})

	sched := scheduler.New(service, cache, cfg.WarmInterval, 2*cfg.UpstreamTimeout, logger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := httpapi.NewApp(service, httpapi.ServerConfig{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * cfg.UpstreamTimeout,
		AccessLog:    true,
		Metrics:      promhttp.Handler(),
		Logger:       logger.Named("http"),
	})

	logger.Infow("starting skisignal",
		"port", cfg.Port,
		"resorts", registry.Len(),
		"snow_ratio", cfg.SnowRatio,
		"warm_interval", cfg.WarmInterval,
		"env", cfg.AppEnv,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Port)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infow("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return app.ShutdownWithContext(shutdownCtx)
}
