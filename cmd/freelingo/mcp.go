package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/aretw0/freelingo"
	"github.com/aretw0/freelingo/pkg/adapters/mcp"
	"github.com/aretw0/freelingo/pkg/observability"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes the end-of-session pipeline and session seeding as MCP tools
(end_session, get_session, put_session, append_messages, list_sessions).

Supported Transports:
- stdio (default): Uses Standard Input/Output. Logs go to stderr.
- sse: Uses Server-Sent Events over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, _ := cmd.Flags().GetString("transport")
			if transport != "stdio" && transport != "sse" {
				return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
			}

			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if offline, _ := cmd.Flags().GetBool("offline"); offline {
				cfg.Pipeline.Offline = true
			}

			ev, err := newEvaluator(cfg, logger)
			if err != nil {
				return err
			}
			sessions, err := newSessions(cfg, logger)
			if err != nil {
				return err
			}
			pipeline := newPipeline(cfg, ev, logger, observability.LogHooks(logger), freelingo.WithSessions(sessions))
			srv := mcp.NewServer(pipeline, sessions, mcp.WithLogger(logger))

			if transport == "stdio" {
				logger.Info("starting freelingo MCP server (stdio)", "version", freelingo.Version)
				return srv.ServeStdio()
			}

			port, _ := cmd.Flags().GetInt("port")
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			logger.Info("starting freelingo MCP server (SSE)", "port", port, "version", freelingo.Version)
			return srv.ServeSSE(ctx, port)
		},
	}

	cmd.Flags().StringP("transport", "t", "stdio", "Transport: stdio or sse")
	cmd.Flags().IntP("port", "p", 8081, "Port for the SSE transport")
	cmd.Flags().Bool("offline", false, "Use the rule-based offline evaluator instead of a model")
	return cmd
}
