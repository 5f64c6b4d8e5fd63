package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/freelingo"
	"github.com/aretw0/freelingo/internal/presentation/report"
	"github.com/aretw0/freelingo/internal/presentation/tui"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/observability"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// runOutput is the JSON document printed by "run --format json" and read by "graph --run".
type runOutput struct {
	Available bool                  `json:"available"`
	Notice    string                `json:"notice,omitempty"`
	Run       *domain.WorkflowState `json:"run"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run SESSION_FILE",
		Short: "Run the pipeline over a recorded session",
		Long: `Reads a session record (YAML or JSON: user_id, known_words, dialogue_history),
builds the transcript from its dialogue history and runs the end-of-session pipeline once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if offline, _ := cmd.Flags().GetBool("offline"); offline {
				cfg.Pipeline.Offline = true
			}
			format, _ := cmd.Flags().GetString("format")
			if format != "markdown" && format != "json" {
				return fmt.Errorf("unknown format %q (want markdown or json)", format)
			}

			record, err := readSession(args[0])
			if err != nil {
				return err
			}

			ev, err := newEvaluator(cfg, logger)
			if err != nil {
				return err
			}
			pipeline := newPipeline(cfg, ev, logger, observability.LogHooks(logger))

			snapshot := record.Snapshot(time.Now())
			state := pipeline.Run(cmd.Context(), record.UserID, snapshot, domain.BuildTranscript(record.DialogueHistory))
			res := freelingo.ResultOf(state)

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runOutput{Available: res.Available, Notice: res.Notice, Run: state})
			}

			if res.Notice != "" {
				tui.PrintNotice(cmd.ErrOrStderr(), res.Notice)
			}
			style, _ := cmd.Flags().GetString("style")
			render, err := tui.NewRenderer(style, 100)
			if err != nil {
				return err
			}
			out, err := render(report.Markdown(state, res.Notice))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().Bool("offline", false, "Use the rule-based offline evaluator instead of a model")
	cmd.Flags().StringP("format", "f", "markdown", "Output format: markdown or json")
	cmd.Flags().String("style", "", "Markdown style (dark, light, notty); detected by default")
	return cmd
}

// readSession decodes a YAML or JSON session record.
func readSession(path string) (*domain.SessionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	record := domain.NewSessionRecord("")
	if err := yaml.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", path, err)
	}
	if record.UserID == "" {
		return nil, fmt.Errorf("session file %s has no user_id", path)
	}
	return record, nil
}
