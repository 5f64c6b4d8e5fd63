package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/freelingo"
	"github.com/aretw0/freelingo/internal/presentation/graph"
	"github.com/aretw0/freelingo/pkg/ports"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the agent chain visualization",
		Long: `Compiles the routing graph from the configured budgets and outputs a Mermaid diagram (graph TD).
With --run, the stages visited by a saved run ("run --format json") are highlighted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			// Only the graph is needed; no evaluator is called.
			pipeline := freelingo.New(ports.EvaluatorFuncs{},
				freelingo.WithLogger(logger),
				freelingo.WithBudgets(cfg.Budgets()),
			)
			g := pipeline.Graph()
			if g == nil {
				return fmt.Errorf("routing graph unavailable: %w", pipeline.ConstructionErr())
			}

			var overlay *graph.GraphOverlay
			if path, _ := cmd.Flags().GetString("run"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read run file: %w", err)
				}
				var saved runOutput
				if err := json.Unmarshal(data, &saved); err != nil {
					return fmt.Errorf("failed to parse run file %s: %w", path, err)
				}
				overlay = graph.OverlayOf(saved.Run)
			}

			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g.Edges(), g.Entry(), overlay))
			return nil
		},
	}
	cmd.Flags().String("run", "", "JSON output of a run to overlay on the graph")
	return cmd
}
