package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/holos-run/gamescout/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var (
	serveAddr string
	servePort int
	serveWarm bool
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Server address (overrides config)")
	cmd.Flags().IntVar(&servePort, "port", 0, "Server port (overrides config)")
	cmd.Flags().BoolVar(&serveWarm, "warm", true, "Load the keyword catalog on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	svc, err := newServices(logger)
	if err != nil {
		return err
	}

	cfg := svc.config.Server
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	api := server.New(svc.keywords, svc.games, server.Config{
		SearchLimit: svc.config.Keywords.SearchLimit,
		Logger:      logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Addr, cfg.Port)

	// Use h2c for HTTP/2 without TLS (suitable for development)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(api.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if serveWarm {
		go func() {
			if err := svc.keywords.Refresh(context.Background()); err != nil {
				slog.Warn("keyword catalog warmup failed", slog.Any("error", err))
			}
		}()
	}

	slog.Info("starting http server",
		slog.String("addr", addr),
		slog.String("upstream", svc.config.Upstream.BaseURL))

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		slog.Info("received signal, shutting down",
			slog.String("signal", sig.String()))
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
