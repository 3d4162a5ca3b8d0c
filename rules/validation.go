package rules

import (
	"fmt"
	"regexp"
	"sort"
)

// Finding is an advisory remark about a parsed rule set.
// Findings never stop evaluation; they point at rules that probably do not do what
// their author intended.
type Finding struct {
	Code      string `json:"code"`
	RuleIndex int    `json:"ruleIndex"` // position in the input rule set, -1 for set-wide findings
	RuleName  string `json:"ruleName,omitempty"`
	Message   string `json:"message"`
}

const (
	FindingEmptyRuleSet      = "empty_rule_set"
	FindingUnknownOperator   = "unknown_operator"
	FindingUnknownField      = "unknown_field"
	FindingInvalidField      = "invalid_field_name"
	FindingDuplicatePriority = "duplicate_priority"
	FindingUnreachable       = "unreachable_rule"
)

var fieldIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Lint inspects a rule set for likely mistakes.
// knownFields lists the attribute names facts will carry; pass nil to skip field checks.
func Lint(ruleSet RuleSet, knownFields []string) []Finding {
	findings := []Finding{}

	if len(ruleSet) == 0 {
		return append(findings, Finding{
			Code:      FindingEmptyRuleSet,
			RuleIndex: -1,
			Message:   "rule set contains no rules; every evaluation will fall through to manual review",
		})
	}

	var known map[string]bool
	if knownFields != nil {
		known = make(map[string]bool, len(knownFields))
		for _, f := range knownFields {
			known[f] = true
		}
	}

	firstAtPriority := make(map[int]int)
	for i, rule := range ruleSet {
		for j, cond := range rule.Conditions {
			if !cond.Operator.Valid() {
				findings = append(findings, Finding{
					Code:      FindingUnknownOperator,
					RuleIndex: i,
					RuleName:  rule.Name,
					Message:   fmt.Sprintf("condition %d uses unknown operator %q and can never match", j, cond.Operator),
				})
			}

			if !fieldIdentifier.MatchString(cond.Field) {
				findings = append(findings, Finding{
					Code:      FindingInvalidField,
					RuleIndex: i,
					RuleName:  rule.Name,
					Message:   fmt.Sprintf("condition %d field %q is not a valid attribute name", j, cond.Field),
				})
			} else if known != nil && !known[cond.Field] {
				findings = append(findings, Finding{
					Code:      FindingUnknownField,
					RuleIndex: i,
					RuleName:  rule.Name,
					Message:   fmt.Sprintf("condition %d references %q, which applicants do not have; the rule can never match", j, cond.Field),
				})
			}
		}

		if first, seen := firstAtPriority[rule.Priority]; seen {
			findings = append(findings, Finding{
				Code:      FindingDuplicatePriority,
				RuleIndex: i,
				RuleName:  rule.Name,
				Message:   fmt.Sprintf("priority %d is shared with rule %d, which is checked first", rule.Priority, first),
			})
		} else {
			firstAtPriority[rule.Priority] = i
		}
	}

	findings = append(findings, unreachable(ruleSet)...)
	return findings
}

// unreachable reports rules ordered after an unconditional rule
func unreachable(ruleSet RuleSet) []Finding {
	order := make([]int, len(ruleSet))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ruleSet[order[a]].Priority > ruleSet[order[b]].Priority
	})

	var findings []Finding
	catchAll := -1
	for _, i := range order {
		rule := ruleSet[i]
		if catchAll >= 0 {
			findings = append(findings, Finding{
				Code:      FindingUnreachable,
				RuleIndex: i,
				RuleName:  rule.Name,
				Message:   fmt.Sprintf("rule %d has no conditions and is checked first, so this rule never fires", catchAll),
			})
			continue
		}
		if len(rule.Conditions) == 0 {
			catchAll = i
		}
	}
	return findings
}
