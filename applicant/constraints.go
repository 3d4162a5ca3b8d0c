package applicant

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// Constraint is a CEL boolean expression an applicant must satisfy
type Constraint struct {
	Field      string
	Expression string
	Message    string
}

// DefaultConstraints returns the intake form's range checks
func DefaultConstraints() []Constraint {
	return []Constraint{
		{FieldCGPA, "cgpa >= 0.0 && cgpa <= 4.0", "cgpa must be between 0.0 and 4.0"},
		{FieldFamilyIncome, "family_income >= 0.0", "family_income must not be negative"},
		{FieldCoCurricularScore, "co_curricular_score >= 0 && co_curricular_score <= 100", "co_curricular_score must be between 0 and 100"},
		{FieldCommunityServiceHours, "community_service_hours >= 0", "community_service_hours must not be negative"},
		{FieldCurrentSemester, "current_semester >= 1", "current_semester must be at least 1"},
		{FieldDisciplinaryActions, "disciplinary_actions >= 0", "disciplinary_actions must not be negative"},
	}
}

// Violation is one failed constraint
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ConstraintError lists every constraint an applicant failed
type ConstraintError struct {
	Violations []Violation
}

func (e *ConstraintError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return "invalid applicant: " + strings.Join(msgs, "; ")
}

type compiledConstraint struct {
	Constraint
	program cel.Program
}

// Validator checks applicants against compiled constraints. It is safe for concurrent use.
type Validator struct {
	constraints []compiledConstraint
}

// NewCELEnv declares every applicant attribute as a typed CEL variable
func NewCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(FieldCGPA, cel.DoubleType),
		cel.Variable(FieldFamilyIncome, cel.DoubleType),
		cel.Variable(FieldCoCurricularScore, cel.IntType),
		cel.Variable(FieldCommunityServiceHours, cel.IntType),
		cel.Variable(FieldCurrentSemester, cel.IntType),
		cel.Variable(FieldDisciplinaryActions, cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// NewValidator compiles constraints; every expression must type-check to bool
func NewValidator(constraints []Constraint) (*Validator, error) {
	env, err := NewCELEnv()
	if err != nil {
		return nil, err
	}

	v := &Validator{constraints: make([]compiledConstraint, 0, len(constraints))}
	for _, c := range constraints {
		ast, issues := env.Compile(c.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("constraint on %s: compile error: %w", c.Field, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("constraint on %s must be boolean, got %s", c.Field, ast.OutputType())
		}

		prog, err := env.Program(ast, cel.CostLimit(10000))
		if err != nil {
			return nil, fmt.Errorf("constraint on %s: program creation error: %w", c.Field, err)
		}
		v.constraints = append(v.constraints, compiledConstraint{Constraint: c, program: prog})
	}
	return v, nil
}

// NewDefaultValidator compiles DefaultConstraints
func NewDefaultValidator() (*Validator, error) {
	return NewValidator(DefaultConstraints())
}

// Validate returns a *ConstraintError listing every violated constraint, or nil
func (v *Validator) Validate(a Applicant) error {
	activation := a.activation()

	var violations []Violation
	for _, c := range v.constraints {
		out, _, err := c.program.Eval(activation)
		if err != nil {
			violations = append(violations, Violation{
				Field:   c.Field,
				Message: fmt.Sprintf("%s (evaluation failed: %v)", c.Message, err),
			})
			continue
		}
		if ok, isBool := out.Value().(bool); !isBool || !ok {
			violations = append(violations, Violation{Field: c.Field, Message: c.Message})
		}
	}

	if len(violations) > 0 {
		return &ConstraintError{Violations: violations}
	}
	return nil
}
