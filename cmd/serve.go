package cmd

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

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxcontent/internal/attachment"
	"github.com/teemow/inboxcontent/internal/instrumentation"
	"github.com/teemow/inboxcontent/internal/logging"
	"github.com/teemow/inboxcontent/internal/server"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether the metrics server is started
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

type serveOptions struct {
	transport        string
	debugMode        bool
	httpAddr         string
	disableStreaming bool
	sweepInterval    time.Duration
	metrics          MetricsConfig
	pipeline         pipelineFlags
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server that gives AI assistants
read access to Gmail attachments.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Attachments are parsed into text, spreadsheet or document content. Results
larger than --max-response-bytes are written to --work-dir and a summary
pointing at the file is returned instead. Spilled files older than
--retention are removed every --sweep-interval.

Google OAuth:
  GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars configure the OAuth
  client used by google_get_auth_url and google_save_auth_code.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.pipeline.config(cmd)
			if err != nil {
				return err
			}
			loadMetricsEnvVars(cmd, &opts.metrics)
			return runServe(opts, cfg)
		},
	}

	cmd.Flags().BoolVar(&opts.debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Answer streamable-http requests with plain JSON instead of SSE")
	cmd.Flags().DurationVar(&opts.sweepInterval, "sweep-interval", time.Hour, "How often spilled files past their retention are removed, 0 to disable")

	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	opts.pipeline.register(cmd)

	return cmd
}

// loadMetricsEnvVars applies METRICS_ENABLED and METRICS_ADDR unless the
// matching flag was set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		switch os.Getenv("METRICS_ENABLED") {
		case "true":
			config.Enabled = true
		case "false":
			config.Enabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

func runServe(opts serveOptions, cfg attachment.Config) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(opts.debugMode)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	resolver := attachment.NewResolver(cfg, nil, nil,
		attachment.WithMetrics(provider.Metrics()),
		attachment.WithLogger(logger))

	scOpts := []server.Option{server.WithLogger(logger)}
	if provider.Enabled() {
		scOpts = append(scOpts, server.WithMetrics(provider.Metrics()))
	}
	if instrConfig.Audit.Enabled {
		scOpts = append(scOpts, server.WithAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.Audit)))
	}
	serverContext, err := server.NewServerContext(shutdownCtx, resolver, scOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	logger.Info("attachment pipeline configured",
		slog.String("work_dir", resolver.WorkDir()),
		slog.Int("max_response_bytes", cfg.MaxSize),
		slog.Duration("retention", cfg.Retention))

	healthChecker := server.NewHealthChecker(serverContext)

	if opts.transport != "stdio" && opts.metrics.Enabled && provider.Enabled() {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metrics.Addr,
			InstrumentationProvider: provider,
			Health:                  healthChecker,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	if opts.sweepInterval > 0 {
		go runSweepLoop(shutdownCtx, resolver, opts.sweepInterval, logger)
	}

	mcpSrv := mcpserver.NewMCPServer("inboxcontent", version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	switch opts.transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		var metrics *instrumentation.Metrics
		if provider.Enabled() {
			metrics = provider.Metrics()
		}
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, server.HTTPServerConfig{
			Addr:             opts.httpAddr,
			DisableStreaming: opts.disableStreaming,
			Health:           healthChecker,
			Metrics:          metrics,
		}, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}
}

// runSweepLoop sweeps the work directory once at start and then on every
// tick until ctx ends.
func runSweepLoop(ctx context.Context, resolver *attachment.Resolver, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := resolver.Sweep(ctx, 0)
		if err != nil && ctx.Err() == nil {
			logger.Warn("work directory sweep failed", logging.Err(err))
		} else if report.Removed > 0 {
			logger.Info("work directory swept",
				slog.Int("removed", report.Removed),
				slog.Int64("removed_bytes", report.RemovedBytes))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, config server.HTTPServerConfig, logger *slog.Logger) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, config)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	logger.Info("streamable HTTP server starting",
		slog.String("addr", httpServer.Addr()),
		slog.String("endpoint", server.MCPEndpointPath))

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
