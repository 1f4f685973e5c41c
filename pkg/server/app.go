package server

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"SigmaSync/internal/usecase"
	"SigmaSync/pkg/config"
	xhttp "SigmaSync/pkg/http"
	applogger "SigmaSync/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	core       *usecase.SynchronizationCore
	httpServer *xhttp.Server
	logger     *applogger.Logger
}

func New(cfg *config.Config, core *usecase.SynchronizationCore, httpServer *xhttp.Server, l *applogger.Logger) *App {
	return &App{cfg: cfg, core: core, httpServer: httpServer, logger: l}
}

// Run starts acquisition and the read API, then blocks until ctx is done or
// SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The core outlives ctx; Close is what stops it.
	if err := a.core.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start core: %w", err)
	}
	if err := a.httpServer.Start(); err != nil {
		_ = a.core.Close(context.Background())
		return fmt.Errorf("start http: %w", err)
	}
	a.logger.Info("sigmasync running",
		applogger.String("env", a.cfg.Environment),
		applogger.String("push", a.cfg.Upstream.PushURL),
		applogger.String("pull", a.cfg.Upstream.PullURL))

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops the core first so no snapshot lands after the API goes
// away, then the HTTP server. Clients are closed by the DI cleanup.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	if err := a.core.Close(ctx); err != nil {
		a.logger.Warn("core stop error", applogger.Error(err))
		firstErr = err
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	a.logger.Info("shutdown complete")
	return firstErr
}
