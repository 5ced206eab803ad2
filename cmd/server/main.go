package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nakedpantry/backend/config"
	httpDelivery "github.com/nakedpantry/backend/internal/delivery/http"
	"github.com/nakedpantry/backend/internal/domain"
	"github.com/nakedpantry/backend/internal/infrastructure/cache"
	"github.com/nakedpantry/backend/internal/infrastructure/postgres"
	"github.com/nakedpantry/backend/internal/infrastructure/rest"
	"github.com/nakedpantry/backend/internal/logger"
	"github.com/nakedpantry/backend/internal/metrics"
	"github.com/nakedpantry/backend/internal/usecase"
)

const (
	shutdownTimeout  = 10 * time.Second
	indicatorTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nakedpantry: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting Naked Pantry backend",
		logger.String("environment", cfg.Server.Environment),
		logger.String("port", cfg.Server.Port),
		logger.String("store_driver", cfg.Store.Driver),
		logger.String("cache_type", cfg.Cache.Type),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	cacheRepo, closeCache, err := newCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	m := metrics.New()

	indicators := loadIndicators(ctx, cfg, store, log)
	classifier := usecase.NewNovaClassifier(usecase.ClassifierConfig{
		ExtraIndicators: indicators,
		Logger:          log,
		Metrics:         m,
	})
	related := usecase.NewRelatedFoodsService(store, cacheRepo, usecase.RelatedFoodsConfig{
		CacheTTL: cfg.Cache.RelatedTTL,
		Logger:   log,
		Metrics:  m,
	})
	aisles := usecase.NewAisleService(store, cacheRepo, usecase.AisleServiceConfig{
		CacheTTL: cfg.Cache.AisleTTL,
		Logger:   log,
		Metrics:  m,
	})

	handler := httpDelivery.NewHandler(classifier, related, aisles, log)
	router := httpDelivery.SetupRouter(cfg, handler, log, m)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func newStore(cfg *config.Config, log logger.Logger) (domain.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverREST:
		client := rest.NewClient(rest.Config{
			BaseURL:           cfg.Store.REST.URL,
			APIKey:            cfg.Store.REST.APIKey,
			RequestsPerSecond: cfg.RateLimit.Store,
			Timeout:           cfg.Store.REST.Timeout,
			Logger:            log.With(logger.String("component", "rest_store")),
		})
		return rest.NewStore(client), nil
	default:
		db, err := postgres.Connect(postgres.Config{
			DSN:          cfg.Store.Postgres.DSN(),
			MaxOpenConns: cfg.Store.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Store.Postgres.MaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return postgres.NewStore(db), nil
	}
}

func newCache(ctx context.Context, cfg *config.Config, log logger.Logger) (domain.CacheRepository, func(), error) {
	if cfg.Cache.Type == config.CacheRedis {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	}

	memCache := cache.NewMemoryCache()
	janitorCtx, cancel := context.WithCancel(ctx)
	go memCache.RunJanitor(janitorCtx, cfg.Cache.JanitorInterval)
	log.Debug("memory cache janitor started", logger.Duration("interval", cfg.Cache.JanitorInterval))
	return memCache, cancel, nil
}

// loadIndicators gathers extra ultra-processed markers. Failures only warn;
// the built-in markers are always available.
func loadIndicators(ctx context.Context, cfg *config.Config, store domain.IndicatorStore, log logger.Logger) []string {
	var extra []string

	if cfg.Classifier.IndicatorsFile != "" {
		phrases, err := usecase.LoadIndicatorFile(cfg.Classifier.IndicatorsFile)
		if err != nil {
			log.Warn("failed to load indicator file",
				logger.String("path", cfg.Classifier.IndicatorsFile),
				logger.Error(err))
		} else {
			extra = append(extra, phrases...)
		}
	}

	if cfg.Classifier.LoadStoreIndicators {
		loadCtx, cancel := context.WithTimeout(ctx, indicatorTimeout)
		defer cancel()

		phrases, err := store.ListIndicators(loadCtx)
		if err != nil {
			log.Warn("failed to load store indicators", logger.Error(err))
		} else {
			extra = append(extra, phrases...)
		}
	}

	if len(extra) > 0 {
		log.Info("loaded extra classifier indicators", logger.Int("count", len(extra)))
	}
	return extra
}
