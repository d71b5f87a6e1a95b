// Package app wires configuration, venues and the trading engine into a
// runnable application.
package app

import (
	"context"
	"sync"

	"github.com/crossarb/crossarb/internal/coordinator"
	"github.com/crossarb/crossarb/internal/engine"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/config"
	"github.com/crossarb/crossarb/pkg/feecache"
	"github.com/crossarb/crossarb/pkg/healthprobe"
	"github.com/crossarb/crossarb/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	feeCache      *feecache.Cache
	coordinator   *coordinator.Coordinator
	engine        *engine.Engine
	storage       storage.Storage
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// Clients overrides the venue adapter registry; used by one-shot
	// commands and tests. Empty means every registered adapter selected
	// by the VENUES config.
	Clients []venue.Client
}
