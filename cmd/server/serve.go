package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classteamup/internal/app"
	"classteamup/internal/config"
	"classteamup/internal/logger"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Development = logOpts.Development

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize app", map[string]any{
			"error": err,
		})
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- application.Run()
	}()

	logger.Info("classteamup started", map[string]any{
		"port": cfg.AppPort,
	})

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received", nil)
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server failed", map[string]any{
				"error": err,
			})
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", map[string]any{
			"error": err,
		})
		return err
	}

	logger.Info("classteamup stopped cleanly", nil)
	return nil
}
