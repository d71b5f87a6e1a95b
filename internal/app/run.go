package app

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("mode", a.cfg.ExecutionMode),
		zap.Strings("pairs", a.cfg.Pairs),
		zap.Float64("min-profit-pct", a.cfg.MinProfitPct),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	// Mark as ready
	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.Int("venues", len(a.coordinator.Venues())))

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Initialize venues: fetch supported pairs and fee schedules.
	// Transient failures trip the venue's breaker instead of aborting.
	err := a.coordinator.Init(a.ctx)
	if err != nil {
		return fmt.Errorf("init venues: %w", err)
	}

	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Start trading engine
	a.wg.Add(1)
	go a.runEngine()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runEngine() {
	defer a.wg.Done()

	err := a.engine.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("engine-error", zap.Error(err))
	}

	// An engine exit for any reason means the app has nothing left to
	// trade with; bring everything down.
	a.cancel()
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
