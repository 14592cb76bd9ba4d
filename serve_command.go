package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_ytsum/internal/apiserver"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/mcptools"
	"github.com/anatolykoptev/go_ytsum/internal/ratelimit"
)

// shutdownGrace bounds how long in-flight summaries may finish on shutdown.
const shutdownGrace = 30 * time.Second

func newServeCommand(cfg *engine.Config) *cobra.Command {
	var noMCP bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and MCP tool server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *cfg, cfg.MCPEnabled && !noMCP)
		},
	}
	cmd.Flags().BoolVar(&noMCP, "no-mcp", false, "Do not start the MCP tool server")
	return cmd
}

// newHTTPServer builds the REST server. Requests run on a background base
// context so a shutdown signal lets in-flight summaries finish within
// shutdownGrace instead of cancelling them.
func newHTTPServer(cfg engine.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTPPort),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout*2 + cfg.LLMTimeout*2 + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func serve(ctx context.Context, cfg engine.Config, withMCP bool) error {
	orch := newOrchestrator(cfg)

	var limiter ratelimit.Limiter
	if rl := ratelimit.NewRedis(cfg.RateLimitRedisURL, cfg.RateLimitRedisToken, cfg.RateLimitRequests, cfg.RateLimitWindow); rl != nil {
		defer rl.Close()
		limiter = rl
	}

	if cfg.LLMAPIKey == "" {
		slog.Warn("OPENROUTER_API_KEY is not set, summaries will fail")
	}
	if cfg.DeepgramAPIKey == "" {
		slog.Warn("DEEPGRAM_API_KEY is not set, videos without captions cannot be summarized")
	}

	if withMCP {
		server := mcp.NewServer(&mcp.Implementation{Name: "go_ytsum", Version: version}, nil)
		mcptools.RegisterTools(server, orch)
		go func() {
			if err := mcpserver.Run(server, mcpserver.Config{
				Name:         "go_ytsum",
				Version:      version,
				Port:         cfg.MCPPort,
				WriteTimeout: 600 * time.Second,
				Metrics:      engine.FormatMetrics,
			}); err != nil {
				slog.Error("mcp server failed", slog.Any("error", err))
			}
		}()
	}

	srv := newHTTPServer(cfg, apiserver.New(orch, limiter).Handler())

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting go_ytsum",
			slog.String("version", version),
			slog.String("http_port", cfg.HTTPPort),
			slog.Bool("mcp", withMCP),
			slog.Bool("rate_limit", limiter != nil),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
