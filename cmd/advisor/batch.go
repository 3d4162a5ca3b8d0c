package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/liamcoop/scholarship/applicant"
	"github.com/liamcoop/scholarship/internal/logger"
	"github.com/liamcoop/scholarship/rules"
)

func newBatchCmd() *cobra.Command {
	var driver, dsn, rulesFile string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate every applicant in an applicant database",
		Long: `Evaluate every applicant stored in a database created by the migrate tool
and print one line per applicant. Records that violate the applicant range
constraints are reported as INVALID and not evaluated.

Example:
  advisor batch --driver sqlite --dsn applicants.db
  advisor batch --driver postgres --dsn "$DATABASE_URL" --rules rules.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if driver == "" {
				driver = os.Getenv("SCHOLARSHIP_APPLICANTS_DRIVER")
			}
			if dsn == "" {
				dsn = os.Getenv("SCHOLARSHIP_APPLICANTS_DSN")
			}
			if driver == "" || dsn == "" {
				return errors.New("--driver and --dsn are required")
			}

			ruleSet, err := loadRuleSet(rulesFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			src, err := applicant.OpenSQLSource(ctx, driver, dsn)
			if err != nil {
				return err
			}
			defer src.Close()

			return runBatch(ctx, cmd, src, ruleSet)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "Database driver: postgres or sqlite")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database connection string or sqlite file")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "Rule set file (default: built-in rules)")
	return cmd
}

func runBatch(ctx context.Context, cmd *cobra.Command, src applicant.Source, ruleSet rules.RuleSet) error {
	applicants, err := src.List(ctx)
	if err != nil {
		return err
	}

	validator, err := applicant.NewDefaultValidator()
	if err != nil {
		return err
	}
	engine := rules.NewEngine(logger.Logger)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDECISION\tRULE")
	for _, a := range applicants {
		if err := validator.Validate(*a); err != nil {
			fmt.Fprintf(tw, "%s\t%s\tINVALID\t%v\n", a.ID, a.Name, err)
			continue
		}

		result := engine.Evaluate(ruleSet, a.Facts())
		if !result.Matched {
			fmt.Fprintf(tw, "%s\t%s\tNO MATCH\t%s\n", a.ID, a.Name, result.Recommendation)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Name, result.Decision, result.RuleName)
	}
	return tw.Flush()
}
