package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/freelingo/internal/config"
	"github.com/aretw0/freelingo/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "freelingo",
		Short: "freelingo runs the end-of-session tutoring pipeline",
		Long: `freelingo turns a finished language-learning conversation into feedback,
a practice plan and new vocabulary, checked for consistency by a referee stage.`,
		SilenceUsage: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().StringP("config", "c", "", "YAML configuration file (FREELINGO_* variables override it)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "Log format: text or json")

	root.AddCommand(newRunCmd(), newServeCmd(), newMCPCmd(), newGraphCmd(), newVersionCmd())
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the process logger.
// Log flags win over the file and the environment.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level, logging.Format(cfg.Log.Format))
	return cfg, logger, nil
}
