package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/blamethrower/pkg/mcp"
	"github.com/Sumatoshi-tech/blamethrower/pkg/observability"
)

const (
	metricsPath            = "/metrics"
	metricsReadTimeout     = 5 * time.Second
	metricsShutdownTimeout = 5 * time.Second
	meterName              = "blamethrower"
)

// newMCPCommand creates the MCP server command.
func newMCPCommand(app *App) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

Tools:
  - blamethrower_stats: merge findings with blame and return per-author statistics
  - blamethrower_list:  list analyzers and repo readers`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := app.setup(cmd, observability.ModeMCP)
			if err != nil {
				return err
			}

			meter := app.providers.Meter

			var handler http.Handler

			if metricsAddr != "" {
				var mp metric.MeterProvider

				handler, mp, err = observability.PrometheusHandler()
				if err != nil {
					return err
				}

				meter = mp.Meter(meterName)
			}

			red, err := observability.NewREDMetrics(meter)
			if err != nil {
				return err
			}

			runs, err := observability.NewRunMetrics(meter)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			if handler != nil {
				stop, serveErr := serveMetrics(ctx, app, metricsAddr, observability.HTTPMiddleware(app.providers.Tracer, red, handler))
				if serveErr != nil {
					return serveErr
				}
				defer stop()
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Runner:  app.newRunner(cmd, runs),
				Logger:  app.providers.Logger,
				Metrics: red,
				Tracer:  app.providers.Tracer,
			})

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

// serveMetrics listens on addr and serves handler at /metrics until the
// returned stop function is called.
func serveMetrics(ctx context.Context, app *App, addr string, handler http.Handler) (func(), error) {
	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, handler)

	server := &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadTimeout}
	logger := app.providers.Logger

	go func() {
		serveErr := server.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", serveErr)
		}
	}()

	logger.Info("serving metrics", "addr", listener.Addr().String(), "path", metricsPath)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		shutdownErr := server.Shutdown(shutdownCtx)
		if shutdownErr != nil {
			logger.Warn("metrics server shutdown", "error", shutdownErr)
		}
	}, nil
}
