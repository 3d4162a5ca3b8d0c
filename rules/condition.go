package rules

import (
	"bytes"
	"encoding/json"
)

// EvaluateCondition applies a single comparison to the facts.
//
// A field missing from facts never satisfies a condition, whatever the operator.
// An operator outside the supported six is never satisfied either, so one bad
// condition disables its rule instead of failing the whole evaluation.
func EvaluateCondition(facts Facts, field string, op Operator, literal float64) bool {
	actual, ok := facts[field]
	if !ok {
		return false
	}

	switch op {
	case OperatorGreaterEqual:
		return actual >= literal
	case OperatorLessEqual:
		return actual <= literal
	case OperatorGreater:
		return actual > literal
	case OperatorLess:
		return actual < literal
	case OperatorEqual:
		return actual == literal
	case OperatorNotEqual:
		return actual != literal
	default:
		return false
	}
}

// Evaluate reports whether the condition holds for facts
func (c Condition) Evaluate(facts Facts) bool {
	return EvaluateCondition(facts, c.Field, c.Operator, c.Value)
}

// MarshalJSON writes the condition in its wire form: [field, operator, literal].
// Operators are written verbatim, not HTML-escaped.
func (c Condition) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]any{c.Field, string(c.Operator), c.Value}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalYAML writes the same [field, operator, literal] form as MarshalJSON
func (c Condition) MarshalYAML() (any, error) {
	return []any{c.Field, string(c.Operator), c.Value}, nil
}

// UnmarshalJSON reads the [field, operator, literal] wire form
func (c *Condition) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	cond, perr := decodeCondition(raw, "")
	if perr != nil {
		return perr
	}
	*c = cond
	return nil
}
