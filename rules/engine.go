package rules

import (
	"log/slog"
	"sort"
	"time"
)

// Select returns the highest-priority rule whose conditions all hold for facts.
//
// Rules are ordered by descending priority; rules of equal priority keep their order
// from ruleSet. Scanning stops at the first rule that fires. The boolean is false when
// no rule fires, which callers must treat differently from a rule that recommends review.
// ruleSet is not modified.
func Select(ruleSet RuleSet, facts Facts) (Rule, bool) {
	for _, rule := range ByPriority(ruleSet) {
		if Matches(rule, facts) {
			return rule, true
		}
	}
	return Rule{}, false
}

// ByPriority returns a copy of ruleSet sorted by descending priority.
// The sort is stable so equal priorities keep their input order.
func ByPriority(ruleSet RuleSet) RuleSet {
	ordered := make(RuleSet, len(ruleSet))
	copy(ordered, ruleSet)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	return ordered
}

// Matches reports whether every condition of rule holds for facts.
// A rule without conditions always matches.
func Matches(rule Rule, facts Facts) bool {
	for _, cond := range rule.Conditions {
		if !cond.Evaluate(facts) {
			return false
		}
	}
	return true
}

// Engine evaluates rule sets and shapes the outcome for display.
// It holds no rule or fact state, so one Engine can serve concurrent callers.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an engine that logs through logger (slog.Default when nil)
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Evaluate selects the fired rule and fills in the display fields of the result.
// Only the rule name gets a fallback; the action is opaque caller data.
func (en *Engine) Evaluate(ruleSet RuleSet, facts Facts) *EvaluationResult {
	start := time.Now()
	rule, ok := Select(ruleSet, facts)
	elapsed := time.Since(start)

	if !ok {
		en.logger.Debug("no rule fired",
			"rule_count", len(ruleSet),
			"duration", elapsed,
		)
		return &EvaluationResult{
			Matched:        false,
			Recommendation: ManualReview,
			Duration:       elapsed,
		}
	}

	// Missing decision and reason were defaulted at parse time; anything the
	// rule carries now is passed through as written.
	decision, reason := rule.Action.Decision, rule.Action.Reason

	en.logger.Debug("rule fired",
		"rule", rule.DisplayName(),
		"priority", rule.Priority,
		"decision", decision,
		"duration", elapsed,
	)

	return &EvaluationResult{
		Matched:  true,
		Rule:     &rule,
		RuleName: rule.DisplayName(),
		Decision: decision,
		Reason:   reason,
		Duration: elapsed,
	}
}
