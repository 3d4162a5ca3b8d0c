package rules

import "time"

// Facts maps applicant attribute names to numeric values.
// A Facts value is supplied fresh for each evaluation and is never modified by the engine.
type Facts map[string]float64

// Operator is the comparison applied by a Condition
type Operator string

const (
	OperatorGreaterEqual Operator = ">="
	OperatorLessEqual    Operator = "<="
	OperatorGreater      Operator = ">"
	OperatorLess         Operator = "<"
	OperatorEqual        Operator = "=="
	OperatorNotEqual     Operator = "!="
)

// Valid reports whether op is one of the six supported comparisons.
// Unknown operators are still accepted by the parser; they can never be satisfied.
func (op Operator) Valid() bool {
	switch op {
	case OperatorGreaterEqual, OperatorLessEqual, OperatorGreater, OperatorLess, OperatorEqual, OperatorNotEqual:
		return true
	}
	return false
}

// Decision is the outcome recommended by a rule's action.
// The set is open: the engine passes whatever the rule author wrote through unchanged.
type Decision string

const (
	DecisionAwardFull    Decision = "AWARD_FULL"
	DecisionAwardPartial Decision = "AWARD_PARTIAL"
	DecisionReview       Decision = "REVIEW"
	DecisionReject       Decision = "REJECT"
	DecisionUnknown      Decision = "UNKNOWN"
)

const (
	// UnnamedRule is displayed for rules without a name
	UnnamedRule = "Unnamed rule"

	// NoReason is used when a rule has no action or the action has no reason
	NoReason = "No reason provided."

	// ManualReview is the recommendation when no rule fires
	ManualReview = "No rule matched. Please send this case for manual review."
)

// Condition is a single comparison between a fact and a literal
type Condition struct {
	Field    string
	Operator Operator
	Value    float64
}

// Action is what a rule recommends when it fires
type Action struct {
	Decision Decision `json:"decision" yaml:"decision"`
	Reason   string   `json:"reason" yaml:"reason"`
}

// Rule is a named, prioritized set of conditions plus an action.
// A rule with no conditions always fires.
type Rule struct {
	Name       string      `json:"name" yaml:"name"`
	Priority   int         `json:"priority" yaml:"priority"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Action     Action      `json:"action" yaml:"action"`
}

// DisplayName returns the rule name, or UnnamedRule if it has none
func (r Rule) DisplayName() string {
	if r.Name == "" {
		return UnnamedRule
	}
	return r.Name
}

// RuleSet is an ordered sequence of rules. Order matters only between rules of equal priority.
type RuleSet []Rule

// EvaluationResult contains the outcome of evaluating a rule set against one set of facts
type EvaluationResult struct {
	Matched        bool
	Rule           *Rule // nil when nothing fired
	RuleName       string
	Decision       Decision
	Reason         string
	Recommendation string
	Duration       time.Duration
}
