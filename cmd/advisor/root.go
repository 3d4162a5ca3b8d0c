package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/liamcoop/scholarship/internal/logger"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "advisor",
		Short: "Recommend scholarship decisions from a prioritized rule set",
		Long: `advisor evaluates an applicant against a rule set and reports the single
highest-priority rule whose conditions all hold, or recommends manual review
when no rule fires.

Rule sets are JSON or YAML arrays of {name, priority, conditions, action}.
Without --rules the built-in rule set is used.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Setup(logger.Options{
				Level:  logLevel,
				Format: logger.FormatText,
				Output: os.Stderr,
			})
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(
		newEvaluateCmd(),
		newRulesCmd(),
		newBatchCmd(),
	)
	return rootCmd
}
