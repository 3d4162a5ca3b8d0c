package rules

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseRuleSetDefault(t *testing.T) {
	ruleSet, err := ParseRuleSet([]byte(DefaultRuleSetJSON))
	if err != nil {
		t.Fatalf("ParseRuleSet(default) failed: %v", err)
	}
	if len(ruleSet) != 5 {
		t.Fatalf("expected 5 rules, got %d", len(ruleSet))
	}

	top := ruleSet[0]
	if top.Name != "Top merit candidate" || top.Priority != 100 {
		t.Errorf("unexpected first rule: %+v", top)
	}
	if len(top.Conditions) != 4 {
		t.Fatalf("expected 4 conditions, got %d", len(top.Conditions))
	}
	want := Condition{Field: "cgpa", Operator: OperatorGreaterEqual, Value: 3.7}
	if top.Conditions[0] != want {
		t.Errorf("first condition = %+v, want %+v", top.Conditions[0], want)
	}
	if top.Action.Decision != DecisionAwardFull {
		t.Errorf("decision = %s", top.Action.Decision)
	}

	// input order is preserved; sorting happens at evaluation
	if ruleSet[3].Priority != 95 {
		t.Errorf("rule 3 priority = %d, want 95", ruleSet[3].Priority)
	}
}

// TestParseRuleSetLenientDefaults verifies missing conditions/action/priority are filled in
func TestParseRuleSetLenientDefaults(t *testing.T) {
	ruleSet, err := ParseRuleSet([]byte(`[
		{"name": "no conditions", "priority": 5, "action": {"decision": "REVIEW", "reason": "r"}},
		{"name": "no action", "priority": 4, "conditions": [["cgpa", ">", 1]]},
		{"conditions": null, "action": {"reason": "only reason"}},
		{"action": {"decision": "CUSTOM_DECISION"}}
	]`))
	if err != nil {
		t.Fatalf("ParseRuleSet() failed: %v", err)
	}

	if len(ruleSet[0].Conditions) != 0 {
		t.Errorf("missing conditions should be empty, got %v", ruleSet[0].Conditions)
	}
	if ruleSet[1].Action.Decision != DecisionUnknown || ruleSet[1].Action.Reason != NoReason {
		t.Errorf("missing action should default, got %+v", ruleSet[1].Action)
	}
	if ruleSet[2].Priority != 0 || ruleSet[2].Name != "" {
		t.Errorf("missing priority/name should be zero values, got %+v", ruleSet[2])
	}
	if ruleSet[2].Action.Decision != DecisionUnknown || ruleSet[2].Action.Reason != "only reason" {
		t.Errorf("partial action = %+v", ruleSet[2].Action)
	}
	if ruleSet[3].Action.Decision != "CUSTOM_DECISION" {
		t.Errorf("decisions are passed through unchanged, got %s", ruleSet[3].Action.Decision)
	}

	rule, ok := Select(ruleSet, Facts{})
	if !ok || rule.Name != "no conditions" {
		t.Errorf("rule without conditions should fire first, got %q", rule.Name)
	}
}

func TestParseRuleSetAcceptsUnknownOperator(t *testing.T) {
	ruleSet, err := ParseRuleSet([]byte(`[{"name": "typo", "conditions": [["cgpa", "=>", 3]]}]`))
	if err != nil {
		t.Fatalf("unknown operators should parse, got %v", err)
	}
	if ruleSet[0].Conditions[0].Operator != "=>" {
		t.Errorf("operator should be kept verbatim, got %q", ruleSet[0].Conditions[0].Operator)
	}
}

func TestParseRuleSetEmptyArray(t *testing.T) {
	ruleSet, err := ParseRuleSet([]byte(` [ ] `))
	if err != nil {
		t.Fatalf("empty array should parse: %v", err)
	}
	if ruleSet == nil || len(ruleSet) != 0 {
		t.Errorf("expected empty non-nil rule set, got %#v", ruleSet)
	}
}

func TestParseRuleSetSyntaxErrors(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"empty input", "", 0},
		{"whitespace only", "   \n ", 0},
		{"trailing comma", "[\n  {\"name\": \"a\"},\n]", 3},
		{"truncated", "[\n  {\"name\": \"a\"", 0},
		{"bare word", "[\n  nope\n]", 2},
		{"missing comma", "[\n {\"name\": \"a\"}\n {\"name\": \"b\"}\n]", 3},
		{"trailing data", "[]\n]", 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRuleSet([]byte(tc.input))
			if err == nil {
				t.Fatalf("expected error for %q", tc.input)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Kind != ErrorKindSyntax {
				t.Errorf("Kind = %s, want syntax", perr.Kind)
			}
			if tc.wantLine > 0 && perr.Line != tc.wantLine {
				t.Errorf("Line = %d, want %d (%v)", perr.Line, tc.wantLine, perr)
			}
		})
	}
}

func TestParseRuleSetStructuralErrors(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		wantPath string
		wantMsg  string
	}{
		{"object at top level", `{"name": "a"}`, "", "array of rules"},
		{"rule not object", `[1]`, "[0]", "rule must be an object"},
		{"name not string", `[{"name": 7}]`, "[0].name", "name must be a string"},
		{"fractional priority", `[{"priority": 1.5}]`, "[0].priority", "integer"},
		{"string priority", `[{"priority": "high"}]`, "[0].priority", "integer"},
		{"conditions not array", `[{"conditions": {"cgpa": 3}}]`, "[0].conditions", "conditions must be an array"},
		{"condition too short", `[{"conditions": [["cgpa", ">="]]}]`, "[0].conditions[0]", "[field, operator, value]"},
		{"condition too long", `[{"conditions": [["cgpa", ">=", 1, 2]]}]`, "[0].conditions[0]", "[field, operator, value]"},
		{"condition object", `[{"conditions": [{"field": "cgpa"}]}]`, "[0].conditions[0]", "[field, operator, value]"},
		{"field not string", `[{"conditions": [[1, ">=", 1]]}]`, "[0].conditions[0][0]", "field must be a string"},
		{"operator not string", `[{"conditions": [["cgpa", 1, 1]]}]`, "[0].conditions[0][1]", "operator must be a string"},
		{"value string", `[{"conditions": [["cgpa", ">=", "3.5"]]}]`, "[0].conditions[0][2]", "value must be a number"},
		{"value bool", `[{"conditions": [["cgpa", ">=", true]]}]`, "[0].conditions[0][2]", "value must be a number"},
		{"value overflows float64", `[{"conditions": [["cgpa", ">=", 1e400]]}]`, "[0].conditions[0][2]", "out of range"},
		{"priority overflows", `[{"priority": 1e400}]`, "[0].priority", "integer"},
		{"action not object", `[{"action": "AWARD_FULL"}]`, "[0].action", "action must be an object"},
		{"decision not string", `[{"action": {"decision": 1}}]`, "[0].action.decision", "decision must be a string"},
		{"reason not string", `[{"action": {"reason": ["x"]}}]`, "[0].action.reason", "reason must be a string"},
		{"second rule bad", `[{"name": "ok"}, {"conditions": [["cgpa"]]}]`, "[1].conditions[0]", "[field, operator, value]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ruleSet, err := ParseRuleSet([]byte(tc.input))
			if err == nil {
				t.Fatalf("expected error, got rule set %+v", ruleSet)
			}
			if ruleSet != nil {
				t.Error("failed parse should not return a partial rule set")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Kind != ErrorKindStructural {
				t.Errorf("Kind = %s, want structural", perr.Kind)
			}
			if perr.Path != tc.wantPath {
				t.Errorf("Path = %q, want %q", perr.Path, tc.wantPath)
			}
			if !strings.Contains(perr.Message, tc.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", perr.Message, tc.wantMsg)
			}
		})
	}
}

// TestParseRuleSetStructuralErrorLocation verifies the offending rule's position is reported
func TestParseRuleSetStructuralErrorLocation(t *testing.T) {
	input := "[\n  {\"name\": \"ok\"},\n  {\"name\": \"bad\", \"priority\": \"x\"}\n]"

	_, err := ParseRuleSet([]byte(input))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Line != 3 || perr.Column != 3 {
		t.Errorf("location = %d:%d, want 3:3", perr.Line, perr.Column)
	}
	if !strings.Contains(perr.Error(), "3:3") || !strings.Contains(perr.Error(), "[1].priority") {
		t.Errorf("Error() should include location and path, got %q", perr.Error())
	}
}

func TestParseRuleSetYAML(t *testing.T) {
	input := `
- name: Top merit candidate
  priority: 100
  conditions:
    - [cgpa, ">=", 3.7]
    - [disciplinary_actions, "==", 0]
  action:
    decision: AWARD_FULL
    reason: Excellent
- name: Fallback
  action:
    decision: REVIEW
`
	ruleSet, err := ParseRuleSetYAML([]byte(input))
	if err != nil {
		t.Fatalf("ParseRuleSetYAML() failed: %v", err)
	}
	if len(ruleSet) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(ruleSet))
	}
	if ruleSet[0].Conditions[1] != (Condition{Field: "disciplinary_actions", Operator: "==", Value: 0}) {
		t.Errorf("unexpected condition %+v", ruleSet[0].Conditions[1])
	}
	if ruleSet[1].Priority != 0 || len(ruleSet[1].Conditions) != 0 {
		t.Errorf("unexpected fallback rule %+v", ruleSet[1])
	}
}

func TestParseRuleSetYAMLErrors(t *testing.T) {
	_, err := ParseRuleSetYAML([]byte("- name: a\n  priority: [\n"))
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Kind != ErrorKindSyntax {
		t.Fatalf("expected syntax ParseError, got %v", err)
	}

	_, err = ParseRuleSetYAML([]byte("- name: a\n  priority: high\n"))
	if !errors.As(err, &perr) || perr.Kind != ErrorKindStructural || perr.Path != "[0].priority" {
		t.Fatalf("expected structural error at [0].priority, got %v", err)
	}

	_, err = ParseRuleSetYAML([]byte(""))
	if !errors.As(err, &perr) {
		t.Fatalf("empty document should fail, got %v", err)
	}
}

func TestLoadRuleSetFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(jsonPath, []byte(DefaultRuleSetJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	ruleSet, err := LoadRuleSetFile(jsonPath)
	if err != nil {
		t.Fatalf("LoadRuleSetFile(json) failed: %v", err)
	}
	if len(ruleSet) != 5 {
		t.Errorf("expected 5 rules, got %d", len(ruleSet))
	}

	yamlPath := filepath.Join(dir, "rules.yml")
	if err := os.WriteFile(yamlPath, []byte("- name: only\n  priority: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ruleSet, err = LoadRuleSetFile(yamlPath)
	if err != nil {
		t.Fatalf("LoadRuleSetFile(yaml) failed: %v", err)
	}
	if len(ruleSet) != 1 || ruleSet[0].Name != "only" {
		t.Errorf("unexpected YAML rule set %+v", ruleSet)
	}

	badPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badPath, []byte("[1]"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = LoadRuleSetFile(badPath)
	var perr *ParseError
	if !errors.As(err, &perr) || perr.File != badPath {
		t.Errorf("expected ParseError naming %s, got %v", badPath, err)
	}

	_, err = LoadRuleSetFile(filepath.Join(dir, "missing.json"))
	if !errors.As(err, &perr) || perr.Kind != ErrorKindIO {
		t.Errorf("expected io ParseError, got %v", err)
	}
}

// TestYAMLOutputParsesBack verifies rule sets written as YAML keep the condition triple form
func TestYAMLOutputParsesBack(t *testing.T) {
	out, err := yaml.Marshal(DefaultRuleSet())
	if err != nil {
		t.Fatalf("yaml.Marshal failed: %v", err)
	}

	ruleSet, err := ParseRuleSetYAML(out)
	if err != nil {
		t.Fatalf("ParseRuleSetYAML() failed on marshalled output: %v\n%s", err, out)
	}
	if !reflect.DeepEqual(ruleSet, DefaultRuleSet()) {
		t.Errorf("rule set changed after YAML output:\n%s", out)
	}
}
