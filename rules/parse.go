package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrorKind categorizes a rule-set parse failure
type ErrorKind string

const (
	ErrorKindSyntax     ErrorKind = "syntax"     // not well-formed JSON or YAML
	ErrorKindStructural ErrorKind = "structural" // well-formed, but not the rule-set shape
	ErrorKindIO         ErrorKind = "io"
)

// ParseError reports why a rule set was rejected and, when known, where.
// Line and Column are 1-based and zero when unknown.
type ParseError struct {
	Kind    ErrorKind
	Message string
	File    string
	Line    int
	Column  int
	Path    string // e.g. [2].conditions[0][1]
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Kind, e.Message))
	if loc := e.Location(); loc != "" {
		sb.WriteString(" at ")
		sb.WriteString(loc)
	}
	return sb.String()
}

// Location renders the known position as "file:line:column path"
func (e *ParseError) Location() string {
	var parts []string
	if e.File != "" || e.Line > 0 {
		pos := e.File
		if e.Line > 0 {
			if pos != "" {
				pos += ":"
			}
			pos += fmt.Sprintf("%d:%d", e.Line, e.Column)
		}
		parts = append(parts, pos)
	}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	return strings.Join(parts, " ")
}

// ParseRuleSet decodes and validates a JSON rule set.
//
// The first malformed element aborts the whole set. Missing optional members are
// filled in leniently: no conditions means the rule always fires, no action means
// decision UNKNOWN with a placeholder reason, no priority means 0.
func ParseRuleSet(data []byte) (RuleSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Kind: ErrorKindSyntax, Message: "rule set is empty"}
	}

	// Unmarshal reports syntax errors with offsets from the start of data;
	// the streaming pass below only has to deal with shape. Valid JSON whose numbers
	// overflow float64 is left to that pass, which reports them by path.
	if !json.Valid(data) {
		var doc any
		return nil, syntaxError(data, json.Unmarshal(data, &doc))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, syntaxError(data, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		line, col := position(data, skipSeparators(data, 0))
		return nil, &ParseError{
			Kind:    ErrorKindStructural,
			Message: "rule set must be an array of rules",
			Line:    line,
			Column:  col,
		}
	}

	ruleSet := RuleSet{}
	for i := 0; dec.More(); i++ {
		start := skipSeparators(data, dec.InputOffset())

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, syntaxError(data, err)
		}

		rule, perr := decodeRule(raw, i)
		if perr != nil {
			perr.Line, perr.Column = position(data, start)
			return nil, perr
		}
		ruleSet = append(ruleSet, rule)
	}

	return ruleSet, nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// ParseRuleSetYAML decodes a rule set authored as YAML.
// The document must have the same shape as the JSON form.
func ParseRuleSetYAML(data []byte) (RuleSet, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		perr := &ParseError{Kind: ErrorKindSyntax, Message: err.Error()}
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			perr.Line, _ = strconv.Atoi(m[1])
		}
		return nil, perr
	}
	if doc == nil {
		return nil, &ParseError{Kind: ErrorKindSyntax, Message: "rule set is empty"}
	}

	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, &ParseError{Kind: ErrorKindStructural, Message: fmt.Sprintf("unsupported YAML content: %v", err)}
	}

	ruleSet, err := ParseRuleSet(asJSON)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			// positions refer to the converted document, not the YAML source
			perr.Line, perr.Column = 0, 0
		}
		return nil, err
	}
	return ruleSet, nil
}

// LoadRuleSetFile reads a rule set from disk. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func LoadRuleSetFile(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{
			Kind:    ErrorKindIO,
			Message: fmt.Sprintf("failed to read rule file: %v", err),
			File:    path,
		}
	}

	var ruleSet RuleSet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		ruleSet, err = ParseRuleSetYAML(data)
	default:
		ruleSet, err = ParseRuleSet(data)
	}
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.File = path
		}
		return nil, err
	}
	return ruleSet, nil
}

func decodeRule(raw any, index int) (Rule, *ParseError) {
	at := fmt.Sprintf("[%d]", index)

	obj, ok := raw.(map[string]any)
	if !ok {
		return Rule{}, structural(at, "rule must be an object, got %s", describe(raw))
	}

	var rule Rule

	if v, present := obj["name"]; present && v != nil {
		name, ok := v.(string)
		if !ok {
			return Rule{}, structural(at+".name", "name must be a string, got %s", describe(v))
		}
		rule.Name = name
	}

	if v, present := obj["priority"]; present && v != nil {
		num, ok := v.(json.Number)
		if !ok {
			return Rule{}, structural(at+".priority", "priority must be an integer, got %s", describe(v))
		}
		p, err := strconv.Atoi(num.String())
		if err != nil {
			return Rule{}, structural(at+".priority", "priority must be an integer, got %s", num.String())
		}
		rule.Priority = p
	}

	if v, present := obj["conditions"]; present && v != nil {
		items, ok := v.([]any)
		if !ok {
			return Rule{}, structural(at+".conditions", "conditions must be an array, got %s", describe(v))
		}
		rule.Conditions = make([]Condition, 0, len(items))
		for j, item := range items {
			cond, perr := decodeCondition(item, fmt.Sprintf("%s.conditions[%d]", at, j))
			if perr != nil {
				return Rule{}, perr
			}
			rule.Conditions = append(rule.Conditions, cond)
		}
	}

	rule.Action = Action{Decision: DecisionUnknown, Reason: NoReason}
	if v, present := obj["action"]; present && v != nil {
		act, ok := v.(map[string]any)
		if !ok {
			return Rule{}, structural(at+".action", "action must be an object, got %s", describe(v))
		}
		if d, present := act["decision"]; present && d != nil {
			decision, ok := d.(string)
			if !ok {
				return Rule{}, structural(at+".action.decision", "decision must be a string, got %s", describe(d))
			}
			rule.Action.Decision = Decision(decision)
		}
		if r, present := act["reason"]; present && r != nil {
			reason, ok := r.(string)
			if !ok {
				return Rule{}, structural(at+".action.reason", "reason must be a string, got %s", describe(r))
			}
			rule.Action.Reason = reason
		}
	}

	return rule, nil
}

func decodeCondition(raw any, at string) (Condition, *ParseError) {
	triple, ok := raw.([]any)
	if !ok || len(triple) != 3 {
		return Condition{}, structural(at, "condition must be a [field, operator, value] array")
	}

	field, ok := triple[0].(string)
	if !ok {
		return Condition{}, structural(at+"[0]", "condition field must be a string, got %s", describe(triple[0]))
	}
	op, ok := triple[1].(string)
	if !ok {
		return Condition{}, structural(at+"[1]", "condition operator must be a string, got %s", describe(triple[1]))
	}
	num, ok := triple[2].(json.Number)
	if !ok {
		return Condition{}, structural(at+"[2]", "condition value must be a number, got %s", describe(triple[2]))
	}
	value, err := num.Float64()
	if err != nil {
		return Condition{}, structural(at+"[2]", "condition value %s is out of range", num.String())
	}

	return Condition{Field: field, Operator: Operator(op), Value: value}, nil
}

func structural(path, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:    ErrorKindStructural,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

func syntaxError(data []byte, err error) *ParseError {
	offset := int64(len(data))
	var synErr *json.SyntaxError
	if errors.As(err, &synErr) {
		offset = synErr.Offset
	}
	line, col := position(data, offset)
	return &ParseError{
		Kind:    ErrorKindSyntax,
		Message: err.Error(),
		Line:    line,
		Column:  col,
	}
}

// describe names the JSON type of a decoded value for error messages
func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func skipSeparators(data []byte, offset int64) int64 {
	for offset < int64(len(data)) {
		switch data[offset] {
		case ' ', '\t', '\r', '\n', ',':
			offset++
		default:
			return offset
		}
	}
	return offset
}

// position converts a byte offset into a 1-based line and column
func position(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col := 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
