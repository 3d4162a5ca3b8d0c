package main

import (
	"encoding/json"

	"github.com/liamcoop/scholarship/applicant"
	"github.com/liamcoop/scholarship/rules"
)

// API request and response models

// EvaluateRequest is the body of POST /api/v1/evaluate. Both members are optional:
// a missing rule set uses the active one, missing applicant fields use the intake defaults.
type EvaluateRequest struct {
	Rules     json.RawMessage `json:"rules,omitempty"`
	Applicant json.RawMessage `json:"applicant,omitempty"`
}

// EvaluateResponse describes the fired rule, or the manual-review recommendation when none fired
type EvaluateResponse struct {
	EvaluationID   string         `json:"evaluationId" example:"123e4567-e89b-12d3-a456-426614174000"`
	ApplicantID    string         `json:"applicantId,omitempty"`
	Matched        bool           `json:"matched" example:"true"`
	FiredRule      string         `json:"firedRule,omitempty" example:"Top merit candidate"`
	Priority       *int           `json:"priority,omitempty" example:"100"`
	Decision       rules.Decision `json:"decision,omitempty" example:"AWARD_FULL"`
	Reason         string         `json:"reason,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
	Facts          rules.Facts    `json:"facts"`
	RuleSource     string         `json:"ruleSource" example:"default"`
	EvaluationTime string         `json:"evaluationTime" example:"4.1µs"`
}

// RuleSetResponse lists a rule set in its authored order
type RuleSetResponse struct {
	Source string        `json:"source"`
	Count  int           `json:"count"`
	Rules  rules.RuleSet `json:"rules"`
}

// ValidateResponse is returned for a rule set that parsed
type ValidateResponse struct {
	Valid     bool            `json:"valid"`
	RuleCount int             `json:"ruleCount"`
	Findings  []rules.Finding `json:"findings"`
}

// ParseErrorResponse is returned with 422 for a rejected rule set
type ParseErrorResponse struct {
	Error   string          `json:"error" example:"invalid rule set"`
	Kind    rules.ErrorKind `json:"kind" example:"structural"`
	Message string          `json:"message"`
	Line    int             `json:"line,omitempty"`
	Column  int             `json:"column,omitempty"`
	Path    string          `json:"path,omitempty" example:"[1].conditions[0][2]"`
}

// ConstraintErrorResponse is returned with 400 for an out-of-range applicant
type ConstraintErrorResponse struct {
	Error      string                `json:"error" example:"invalid applicant"`
	Violations []applicant.Violation `json:"violations"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string `json:"status" example:"healthy"`
	RuleSource       string `json:"ruleSource"`
	RulesLoaded      int    `json:"rulesLoaded"`
	RulesFresh       bool   `json:"rulesFresh"` // false once the cache TTL has lapsed without a successful reload
	ApplicantsSource bool   `json:"applicantSource"`
}

func newEvaluateResponse(id string, result *rules.EvaluationResult, facts rules.Facts, source string) EvaluateResponse {
	resp := EvaluateResponse{
		EvaluationID:   id,
		Matched:        result.Matched,
		Recommendation: result.Recommendation,
		Facts:          facts,
		RuleSource:     source,
		EvaluationTime: result.Duration.String(),
	}
	if result.Matched {
		resp.FiredRule = result.RuleName
		resp.Decision = result.Decision
		resp.Reason = result.Reason
		if result.Rule != nil {
			p := result.Rule.Priority
			resp.Priority = &p
		}
	}
	return resp
}
