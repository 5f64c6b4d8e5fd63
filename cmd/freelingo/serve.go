package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/freelingo"
	"github.com/aretw0/freelingo/internal/presentation/tui"
	httpAdapter "github.com/aretw0/freelingo/pkg/adapters/http"
	"github.com/aretw0/freelingo/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Exposes session seeding, the end-of-session trigger, run events (SSE) and Prometheus metrics over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if offline, _ := cmd.Flags().GetBool("offline"); offline {
				cfg.Pipeline.Offline = true
			}

			if cfg.Tracing.Enabled() {
				tp, err := observability.NewTracerProvider(cmd.Context(), cfg.Tracing, freelingo.Version)
				if err != nil {
					return err
				}
				otel.SetTracerProvider(tp)
				defer func() {
					if err := tp.Shutdown(context.Background()); err != nil {
						logger.Warn("trace provider shutdown failed", "err", err)
					}
				}()
				logger.Info("exporting traces", "endpoint", cfg.Tracing.Endpoint, "sample_rate", cfg.Tracing.SampleRate)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}

			ev, err := newEvaluator(cfg, logger)
			if err != nil {
				return err
			}
			sessions, err := newSessions(cfg, logger)
			if err != nil {
				return err
			}
			streams := httpAdapter.NewStreamManager()
			hooks := observability.Combine(metrics.Hooks(), observability.LogHooks(logger), streams.Hooks())
			pipeline := newPipeline(cfg, ev, logger, hooks, freelingo.WithSessions(sessions))

			handler, err := httpAdapter.NewHandler(pipeline, sessions,
				httpAdapter.WithStreams(streams),
				httpAdapter.WithGatherer(reg),
				httpAdapter.WithLogger(logger),
			)
			if err != nil {
				return fmt.Errorf("build http handler: %w", err)
			}

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				tui.PrintBanner(cmd.ErrOrStderr())
				logger.Info("starting freelingo server", "addr", srv.Addr, "version", freelingo.Version)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case <-ctx.Done():
				logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)

				// Give outstanding requests a deadline for completion.
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("graceful shutdown did not complete", "err", err)
					if err := srv.Close(); err != nil {
						return fmt.Errorf("error killing server: %w", err)
					}
				}
				logger.Info("freelingo server stopped gracefully")
				return nil
			}
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides server.port)")
	cmd.Flags().Bool("offline", false, "Use the rule-based offline evaluator instead of a model")
	return cmd
}
