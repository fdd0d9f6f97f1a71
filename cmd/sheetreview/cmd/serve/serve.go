// Package serve provides the serve command, which runs the review API.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/sheetreview/cmd/application"
	"github.com/agentstation/sheetreview/internal/server"
	"github.com/agentstation/sheetreview/pkg/errors"
)

// shutdownTimeout bounds connection draining after a shutdown signal.
const shutdownTimeout = 30 * time.Second

// NewCommand creates the serve command. defaults returns the configured
// server settings; flags given on the command line override them.
func NewCommand(app application.Application, defaults func() server.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		Short:   "Start the review API server with WebSocket and SSE support",
		Long: `Start the review API server.

The server polls the table in the background and hosts one review
session per viewer. Each viewer pages and filters independently, drafts
comments and saves them with conflict detection.

Features:
  - Viewer sessions under /api/v1/viewers (page, filter, edit, save)
  - WebSocket updates (/api/v1/updates/ws) and SSE (/api/v1/updates/stream)
  - Cached table reads with configurable TTL
  - Rate limiting (requests per minute per IP)
  - API key authentication (optional)
  - CORS support for web applications
  - Prometheus metrics at /metrics
  - Graceful shutdown with connection draining`,
		Example: `  # Start on default port 8080
  sheetreview serve

  # Start on custom port with authentication
  sheetreview serve --port 3000 --auth

  # Enable CORS for specific origins
  sheetreview serve --cors-origins "https://example.com,https://app.example.com"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := parseConfig(cmd, defaults())
			if err != nil {
				return err
			}
			return run(cmd.Context(), app, cfg)
		},
	}

	d := server.DefaultConfig()

	cmd.Flags().Int("port", d.Port, "Server port")
	cmd.Flags().String("host", d.Host, "Bind address")
	cmd.Flags().String("prefix", d.PathPrefix, "API path prefix")

	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (comma-separated)")

	cmd.Flags().Bool("auth", false, "Enable API key authentication")
	cmd.Flags().String("auth-header", d.AuthHeader, "Authentication header name")

	cmd.Flags().Int("rate-limit", d.RateLimit, "Requests per minute per IP (0 to disable)")
	cmd.Flags().Duration("cache-ttl", d.CacheTTL, "Table response cache TTL")
	cmd.Flags().Duration("viewer-ttl", d.ViewerIdleTTL, "Close viewers idle for this long")
	cmd.Flags().Int("max-viewers", d.MaxViewers, "Maximum open viewers")

	cmd.Flags().Duration("read-timeout", d.ReadTimeout, "HTTP read timeout")
	cmd.Flags().Duration("idle-timeout", d.IdleTimeout, "HTTP idle timeout")

	cmd.Flags().Bool("metrics", d.MetricsEnabled, "Enable metrics endpoint")

	return cmd
}

// parseConfig applies the flags that were set on top of cfg.
func parseConfig(cmd *cobra.Command, cfg server.Config) (server.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("prefix") {
		cfg.PathPrefix, _ = flags.GetString("prefix")
	}
	if flags.Changed("cors") {
		cfg.CORSEnabled, _ = flags.GetBool("cors")
	}
	if flags.Changed("cors-origins") {
		cfg.CORSOrigins, _ = flags.GetStringSlice("cors-origins")
		cfg.CORSEnabled = cfg.CORSEnabled || len(cfg.CORSOrigins) > 0
	}
	if flags.Changed("auth") {
		cfg.AuthEnabled, _ = flags.GetBool("auth")
	}
	if flags.Changed("auth-header") {
		cfg.AuthHeader, _ = flags.GetString("auth-header")
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit, _ = flags.GetInt("rate-limit")
	}
	if flags.Changed("cache-ttl") {
		cfg.CacheTTL, _ = flags.GetDuration("cache-ttl")
	}
	if flags.Changed("viewer-ttl") {
		cfg.ViewerIdleTTL, _ = flags.GetDuration("viewer-ttl")
	}
	if flags.Changed("max-viewers") {
		cfg.MaxViewers, _ = flags.GetInt("max-viewers")
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout, _ = flags.GetDuration("read-timeout")
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout, _ = flags.GetDuration("idle-timeout")
	}
	if flags.Changed("metrics") {
		cfg.MetricsEnabled, _ = flags.GetBool("metrics")
	}

	// Override with environment variables
	if envPort := os.Getenv("HTTP_PORT"); envPort != "" {
		p, err := parsePort(envPort)
		if err != nil {
			return cfg, err
		}
		cfg.Port = p
	}
	if envHost := os.Getenv("HTTP_HOST"); envHost != "" {
		cfg.Host = envHost
	}

	return cfg, cfg.Validate()
}

// parsePort safely parses a port string to integer.
func parsePort(portStr string) (int, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, errors.NewValidationError("port", portStr, "invalid port number")
	}
	if port < 1 || port > 65535 {
		return 0, errors.NewValidationError("port", port, "port out of range")
	}
	return port, nil
}

func run(ctx context.Context, app application.Application, cfg server.Config) error {
	logger := app.Logger()
	logger.Info().
		Int("port", cfg.Port).
		Str("host", cfg.Host).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.RateLimit).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("Starting API server")

	srv, err := server.New(app, cfg)
	if err != nil {
		return errors.WrapResource("create", "server", "", err)
	}
	srv.Start()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return serve(ctx, httpServer, srv, logger)
}

// serve runs httpServer until ctx is cancelled (SIGINT/SIGTERM from main.go)
// or the listener fails, then drains connections and stops the background
// services.
func serve(ctx context.Context, httpServer *http.Server, srv *server.Server, logger *zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		fmt.Printf("🚀 API server listening on %s\n", httpServer.Addr)
		fmt.Println("   Press Ctrl+C to stop")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.WrapResource("listen", "server", httpServer.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down API server")

		// The parent context is already cancelled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return errors.WrapResource("shutdown", "server", httpServer.Addr, err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Background services shutdown had issues")
		}
		logger.Info().Msg("Server stopped gracefully")
		return nil
	})

	return g.Wait()
}
