package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"classteamup/internal/config"
	"classteamup/internal/db"
	"classteamup/internal/logger"
)

type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// eventSource is the identity provider as far as shutdown is concerned.
type eventSource interface {
	Close()
}

type App struct {
	httpServer server
	identity   eventSource
	infra      io.Closer
	watcher    <-chan struct{}
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := setupHTTP(ctx, cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           svc.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		httpServer: server,
		identity:   svc.identity,
		infra:      infra,
		watcher:    watchSessions(svc.identity.Subscribe(), svc.users),
	}, nil
}

// Run serves HTTP until Shutdown is called.
func (a *App) Run() error {
	if err := a.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains the session feed and closes the
// database and Redis connections. Every step runs even when an earlier one
// fails; the errors are joined.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	a.identity.Close()
	select {
	case <-a.watcher:
	case <-ctx.Done():
		logger.Warn("session feed not drained before shutdown deadline", nil)
	}

	if err := a.infra.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close infra: %w", err))
	}

	return errors.Join(errs...)
}

// Migrate applies the schema and exits. It does not touch Redis.
func Migrate(ctx context.Context, cfg config.Config) error {
	database, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(ctx, database.DB); err != nil {
		return err
	}

	logger.Info("migrations applied", nil)
	return nil
}
