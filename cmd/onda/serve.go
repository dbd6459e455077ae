package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ondaradio/onda/internal/apikey"
	"github.com/ondaradio/onda/internal/database"
	"github.com/ondaradio/onda/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background headline refresher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("Starting onda", "version", version)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		key, created, err := apikey.Ensure(a.db, database.ErrNotFound)
		if err != nil {
			return fmt.Errorf("api key: %w", err)
		}
		if created {
			slog.Info("Generated API key", "key", key)
		}

		srv := server.New(cfg, server.Deps{
			DB:        a.db,
			Pipeline:  a.ai,
			Vault:     a.vault,
			Headlines: a.headlines,
			Refresher: a.sched,
			Extractor: a.scraper,
		}, version)

		go a.sched.Run(ctx)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		go func() {
			select {
			case <-sigCh:
			case <-ctx.Done():
				return
			}
			slog.Info("Shutting down...")
			cancel()
			shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Shutdown incomplete", "error", err)
			}
		}()

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		slog.Info("Server stopped")
		return nil
	},
}
