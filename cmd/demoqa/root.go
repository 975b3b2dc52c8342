package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"demoqa-e2e/application"
	"demoqa-e2e/infrastructure/logging"
	"demoqa-e2e/resources"
)

var (
	logLevel string
	logJSON  bool

	suite    *application.Suite
	logger   *slog.Logger
	closeLog func() error
)

var (
	okText   = color.New(color.FgGreen, color.Bold).SprintFunc()
	failText = color.New(color.FgRed, color.Bold).SprintFunc()
	warnText = color.New(color.FgYellow).SprintFunc()
	dimText  = color.New(color.Faint).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "demoqa",
	Short: "Tools for the demoqa.com end-to-end suite",
	Long: `Inspect and exercise the demoqa.com end-to-end suite configuration.

The suite itself runs under go test:
  go test ./e2e -e2e -profile firefox-1366x768

Configuration comes from the embedded config.yaml and the CI / DEMOQA_*
environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := logging.DefaultConfig()
		cfg.JSON = logJSON
		if logLevel != "" {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			cfg.Level = level
		}
		var err error
		logger, closeLog, err = logging.Setup(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		suite, err = application.LoadSuite(cmd.Context(), resources.Files, logger)
		if err != nil {
			return fmt.Errorf("failed to load suite: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if suite != nil {
			if err := suite.Close(context.WithoutCancel(cmd.Context())); err != nil {
				logger.Warn("Failed to close result store", "error", err)
			}
		}
		if closeLog != nil {
			return closeLog()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON lines")
	rootCmd.SetOut(os.Stdout)

	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(warmupCmd)
	rootCmd.AddCommand(resultsCmd)
}
