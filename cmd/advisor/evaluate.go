package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/liamcoop/scholarship/applicant"
	"github.com/liamcoop/scholarship/internal/logger"
	"github.com/liamcoop/scholarship/rules"
)

// Output formats
const (
	outputText = "text"
	outputJSON = "json"
)

type evaluateOptions struct {
	rulesFile     string
	applicantFile string
	output        string
	applicant     applicant.Applicant
}

// evaluation is the JSON output of the evaluate command
type evaluation struct {
	Matched        bool           `json:"matched"`
	FiredRule      string         `json:"firedRule,omitempty"`
	Decision       rules.Decision `json:"decision,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
	Facts          rules.Facts    `json:"facts"`
}

func newEvaluateCmd() *cobra.Command {
	opts := &evaluateOptions{applicant: applicant.Defaults()}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate one applicant",
		Long: `Evaluate one applicant against a rule set.

Applicant attributes start from the intake defaults, are overlaid by --applicant
(a JSON or YAML file) and finally by any attribute flags given explicitly.

Example:
  advisor evaluate --cgpa 3.8 --co-curricular-score 85 --family-income 7000
  advisor evaluate --rules rules.yaml --applicant student.yaml --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, opts)
		},
	}

	d := applicant.Defaults()
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "Rule set file (default: built-in rules)")
	cmd.Flags().StringVar(&opts.applicantFile, "applicant", "", "Applicant JSON or YAML file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "Output format: text or json")
	cmd.Flags().Float64Var(&opts.applicant.CGPA, "cgpa", d.CGPA, "Cumulative GPA (0.0-4.0)")
	cmd.Flags().Float64Var(&opts.applicant.FamilyIncome, "family-income", d.FamilyIncome, "Monthly family income")
	cmd.Flags().IntVar(&opts.applicant.CoCurricularScore, "co-curricular-score", d.CoCurricularScore, "Co-curricular involvement score (0-100)")
	cmd.Flags().IntVar(&opts.applicant.CommunityServiceHours, "community-service-hours", d.CommunityServiceHours, "Community service hours")
	cmd.Flags().IntVar(&opts.applicant.CurrentSemester, "current-semester", d.CurrentSemester, "Current semester of study")
	cmd.Flags().IntVar(&opts.applicant.DisciplinaryActions, "disciplinary-actions", d.DisciplinaryActions, "Number of disciplinary actions")

	return cmd
}

func runEvaluate(cmd *cobra.Command, opts *evaluateOptions) error {
	if opts.output != outputText && opts.output != outputJSON {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.output)
	}

	a, err := resolveApplicant(cmd, opts)
	if err != nil {
		return err
	}

	validator, err := applicant.NewDefaultValidator()
	if err != nil {
		return err
	}
	if err := validator.Validate(a); err != nil {
		return err
	}

	ruleSet, err := loadRuleSet(opts.rulesFile)
	if err != nil {
		return err
	}

	facts := a.Facts()
	result := rules.NewEngine(logger.Logger).Evaluate(ruleSet, facts)

	out := evaluation{
		Matched:        result.Matched,
		FiredRule:      result.RuleName,
		Decision:       result.Decision,
		Reason:         result.Reason,
		Recommendation: result.Recommendation,
		Facts:          facts,
	}

	if opts.output == outputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}
	printEvaluation(cmd.OutOrStdout(), out)
	return nil
}

// resolveApplicant layers the applicant file, then explicitly set flags, over the defaults
func resolveApplicant(cmd *cobra.Command, opts *evaluateOptions) (applicant.Applicant, error) {
	if opts.applicantFile == "" {
		return opts.applicant, nil
	}

	data, err := os.ReadFile(opts.applicantFile)
	if err != nil {
		return applicant.Applicant{}, fmt.Errorf("failed to read applicant file: %w", err)
	}

	// JSON documents are valid YAML
	a := applicant.Defaults()
	if err := yaml.Unmarshal(data, &a); err != nil {
		return applicant.Applicant{}, fmt.Errorf("failed to parse applicant file %s: %w", opts.applicantFile, err)
	}

	flags := cmd.Flags()
	if flags.Changed("cgpa") {
		a.CGPA = opts.applicant.CGPA
	}
	if flags.Changed("family-income") {
		a.FamilyIncome = opts.applicant.FamilyIncome
	}
	if flags.Changed("co-curricular-score") {
		a.CoCurricularScore = opts.applicant.CoCurricularScore
	}
	if flags.Changed("community-service-hours") {
		a.CommunityServiceHours = opts.applicant.CommunityServiceHours
	}
	if flags.Changed("current-semester") {
		a.CurrentSemester = opts.applicant.CurrentSemester
	}
	if flags.Changed("disciplinary-actions") {
		a.DisciplinaryActions = opts.applicant.DisciplinaryActions
	}
	return a, nil
}

func loadRuleSet(path string) (rules.RuleSet, error) {
	if path == "" {
		return rules.DefaultRuleSet(), nil
	}
	return rules.LoadRuleSetFile(path)
}

func printEvaluation(w io.Writer, e evaluation) {
	if e.Matched {
		fmt.Fprintf(w, "Fired rule: %s\n", e.FiredRule)
		fmt.Fprintf(w, "Decision:   %s\n", e.Decision)
		fmt.Fprintf(w, "Reason:     %s\n", e.Reason)
	} else {
		fmt.Fprintln(w, e.Recommendation)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Applicant facts used:")
	fields := make([]string, 0, len(e.Facts))
	for field := range e.Facts {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(w, "  %s: %v\n", field, e.Facts[field])
	}
}
