package app

import (
	"context"
	"fmt"

	"github.com/crossarb/crossarb/internal/coordinator"
	"github.com/crossarb/crossarb/internal/engine"
	"github.com/crossarb/crossarb/internal/execution"
	"github.com/crossarb/crossarb/internal/sizing"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/config"
	"github.com/crossarb/crossarb/pkg/feecache"
	"github.com/crossarb/crossarb/pkg/healthprobe"
	"github.com/crossarb/crossarb/pkg/httpserver"
	"github.com/crossarb/crossarb/pkg/types"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	pairs, err := cfg.TradedPairs()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("parse pairs: %w", err)
	}

	feeCache, err := setupFeeCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup fee cache: %w", err)
	}

	coord, err := setupCoordinator(cfg, logger, feeCache, opts)
	if err != nil {
		cancel()
		feeCache.Close()
		return nil, fmt.Errorf("setup coordinator: %w", err)
	}

	httpServer := setupHTTPServer(cfg, logger, healthChecker, coord, pairs)

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		feeCache.Close()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	eng, err := setupEngine(cfg, logger, coord, store, pairs)
	if err != nil {
		cancel()
		feeCache.Close()
		return nil, fmt.Errorf("setup engine: %w", err)
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		feeCache:      feeCache,
		coordinator:   coord,
		engine:        eng,
		storage:       store,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupFeeCache(cfg *config.Config, logger *zap.Logger) (*feecache.Cache, error) {
	return feecache.New(&feecache.Config{
		NumCounters: 10000, // 10x expected max entries
		MaxItems:    1000,
		TTL:         cfg.FeeCacheTTL,
		Logger:      logger,
	})
}

func setupCoordinator(cfg *config.Config, logger *zap.Logger, feeCache *feecache.Cache, opts *Options) (*coordinator.Coordinator, error) {
	clients := opts.Clients
	if len(clients) == 0 {
		var err error
		clients, err = Clients(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	venues := make([]*venue.State, 0, len(clients))
	for _, client := range clients {
		state, err := venue.NewState(&venue.Config{
			Client:   client,
			FeeCache: feeCache,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("venue %s: %w", client.Name(), err)
		}
		venues = append(venues, state)
	}

	return coordinator.New(coordinator.Config{
		Venues:             venues,
		Currencies:         cfg.Currencies(),
		Logger:             logger,
		FreshnessThreshold: cfg.FreshnessThreshold,
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	coord *coordinator.Coordinator,
	pairs []types.Pair,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Coordinator:   coord,
		Pairs:         pairs,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupEngine(
	cfg *config.Config,
	logger *zap.Logger,
	coord *coordinator.Coordinator,
	store storage.Storage,
	pairs []types.Pair,
) (*engine.Engine, error) {
	sizer := sizing.New(sizing.Config{
		BufferFraction: cfg.Buffer(),
		Logger:         logger,
	})

	controller, err := execution.New(execution.Config{
		Coordinator:  coord,
		Logger:       logger,
		FillTimeout:  cfg.FillTimeout,
		PollInterval: cfg.PollInterval,
		DryRun:       cfg.ExecutionMode != "live",
	})
	if err != nil {
		return nil, fmt.Errorf("create execution controller: %w", err)
	}

	return engine.New(engine.Config{
		Coordinator:       coord,
		Sizer:             sizer,
		Controller:        controller,
		Store:             store,
		Pairs:             pairs,
		Currencies:        cfg.Currencies(),
		Logger:            logger,
		MinProfitPct:      cfg.MinProfit(),
		CycleInterval:     cfg.CycleInterval,
		RefreshInterval:   cfg.RefreshInterval,
		RebalanceInterval: cfg.RebalanceInterval,
		SweepInterval:     cfg.SweepInterval,
		TableInterval:     cfg.TableInterval,
	})
}
