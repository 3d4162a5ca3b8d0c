package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/liamcoop/scholarship/applicant"
	"github.com/liamcoop/scholarship/rules"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and check rule sets",
	}
	cmd.AddCommand(newRulesDefaultCmd(), newRulesValidateCmd())
	return cmd
}

func newRulesDefaultCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "default",
		Short: "Print the built-in rule set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleSet := rules.DefaultRuleSet()
			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(ruleSet)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(ruleSet)
			default:
				return fmt.Errorf("unknown format %q (use json or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	return cmd
}

func newRulesValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Parse rule files and report problems",
		Long: `Parse each rule file (JSON, or YAML for .yaml/.yml) and report where it is
malformed. Files that parse are linted for unknown operators, unknown applicant
fields, duplicate priorities and rules that can never fire.

With --strict, lint findings fail the command as well.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0

			for _, path := range args {
				ruleSet, err := rules.LoadRuleSetFile(path)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", path, err)
					failed++
					continue
				}

				findings := rules.Lint(ruleSet, applicant.Fields())
				for _, f := range findings {
					fmt.Fprintf(out, "%s: %s\n", path, formatFinding(f))
				}
				if len(findings) > 0 && strict {
					failed++
					continue
				}
				fmt.Fprintf(out, "%s: OK (%d rules)\n", path, len(ruleSet))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d rule files failed validation", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat lint findings as errors")
	return cmd
}

func formatFinding(f rules.Finding) string {
	if f.RuleIndex < 0 {
		return fmt.Sprintf("%s: %s", f.Code, f.Message)
	}
	return fmt.Sprintf("rule %d (%s): %s: %s", f.RuleIndex, f.RuleName, f.Code, f.Message)
}
