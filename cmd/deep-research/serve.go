// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/server"
	"github.com/pdiddy/deep-research/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session archive over a read-only HTTP API",
	Long: `Serve exposes the archive over HTTP: session listings, full session
records, rendered reports, and full-text source search. The API is
read-only; research runs stay on the CLI.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := stringOpt(cmd, "addr", "server.addr")

	st, err := store.New(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(st, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8475", "listen address")
	serveCmd.Flags().String("data-dir", "data", "base directory for the session archive")
	serveCmd.Flags().Int("max-results", 20, "default result limit for archive queries")

	rootCmd.AddCommand(serveCmd)
}
