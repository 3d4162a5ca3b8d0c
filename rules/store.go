package rules

import (
	"context"
	"fmt"
)

// Source supplies the rule set a service evaluates against when the caller does not
// send one. Sources only read; rule sets are never written back.
type Source interface {
	// Load returns a freshly parsed rule set
	Load(ctx context.Context) (RuleSet, error)

	// Describe names the source for logs, e.g. a file path
	Describe() string
}

// StaticSource serves a fixed rule set held in memory
type StaticSource struct {
	ruleSet RuleSet
	name    string
}

// NewStaticSource creates a source that always returns ruleSet
func NewStaticSource(name string, ruleSet RuleSet) *StaticSource {
	return &StaticSource{
		ruleSet: cloneRuleSet(ruleSet),
		name:    name,
	}
}

// NewDefaultSource serves the built-in default rule set
func NewDefaultSource() *StaticSource {
	return NewStaticSource("default", DefaultRuleSet())
}

// Load returns a copy of the held rule set
func (s *StaticSource) Load(ctx context.Context) (RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneRuleSet(s.ruleSet), nil
}

func (s *StaticSource) Describe() string {
	return s.name
}

// FileSource loads a JSON or YAML rule file on every Load
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and parses the rule file
func (s *FileSource) Load(ctx context.Context) (RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ruleSet, err := LoadRuleSetFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set from %s: %w", s.path, err)
	}
	return ruleSet, nil
}

func (s *FileSource) Describe() string {
	return s.path
}

// cloneRuleSet copies the rule slice and each rule's conditions
func cloneRuleSet(ruleSet RuleSet) RuleSet {
	if ruleSet == nil {
		return nil
	}
	out := make(RuleSet, len(ruleSet))
	for i, r := range ruleSet {
		out[i] = r
		if r.Conditions != nil {
			out[i].Conditions = append([]Condition(nil), r.Conditions...)
		}
	}
	return out
}
