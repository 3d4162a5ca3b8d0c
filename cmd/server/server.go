package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/liamcoop/scholarship/applicant"
	"github.com/liamcoop/scholarship/internal/config"
	"github.com/liamcoop/scholarship/internal/logger"
	"github.com/liamcoop/scholarship/internal/metrics"
	"github.com/liamcoop/scholarship/internal/watcher"
	"github.com/liamcoop/scholarship/rules"
)

const slowRequestThreshold = time.Second

type Server struct {
	cfg        *config.Config
	engine     *rules.Engine
	source     rules.Source
	cache      rules.RuleSetCache
	applicants applicant.Source // nil when no applicant database is configured
	validator  *applicant.Validator
	metrics    *metrics.Collector
	router     *chi.Mux

	reloadMu sync.Mutex
}

// NewServer loads the initial rule set from source. It fails if that first load fails;
// later reload failures keep the previous rule set.
func NewServer(ctx context.Context, cfg *config.Config, source rules.Source, applicants applicant.Source, collector *metrics.Collector) (*Server, error) {
	validator, err := applicant.NewDefaultValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to compile applicant constraints: %w", err)
	}
	if collector == nil {
		collector = metrics.NewCollector(nil)
	}

	s := &Server{
		cfg:        cfg,
		engine:     rules.NewEngine(logger.Logger),
		source:     source,
		cache:      rules.NewInMemoryRuleSetCache(rules.CacheConfig{TTL: cfg.Rules.CacheTTL}),
		applicants: applicants,
		validator:  validator,
		metrics:    collector,
	}

	if err := s.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to load initial rule set: %w", err)
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/evaluate", s.handleEvaluate)

	r.Route("/api/v1/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Get("/default", s.handleDefaultRules)
		r.Post("/validate", s.handleValidateRules)
	})

	r.Get("/api/v1/applicants/{applicantId}/evaluation", s.handleEvaluateApplicant)

	if s.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Reload loads the rule set from the source and makes it active.
// On failure the previously active rule set stays in place.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ruleSet, err := s.source.Load(ctx)
	if err != nil {
		s.metrics.RecordReload(false, 0)
		var perr *rules.ParseError
		if errors.As(err, &perr) {
			s.metrics.RecordParseError(perr.Kind)
		}
		logger.Warn("Rule set reload failed, keeping previous rule set",
			"source", s.source.Describe(),
			"error", err,
		)
		return err
	}

	for _, f := range rules.Lint(ruleSet, applicant.Fields()) {
		logger.Warn("Rule set lint finding",
			"source", s.source.Describe(),
			"code", f.Code,
			"rule", f.RuleName,
			"message", f.Message,
		)
	}

	s.cache.Set(ruleSet)
	s.metrics.RecordReload(true, len(ruleSet))
	logger.Info("Rule set loaded", "source", s.source.Describe(), "rules", len(ruleSet))
	return nil
}

// watchRules reloads the rule set after each change to the rule file until ctx is done
func (s *Server) watchRules(ctx context.Context, fw *watcher.FileWatcher) error {
	return fw.Watch(ctx, func() {
		// Reload logs and counts failures and keeps the previous rule set.
		_ = s.Reload(ctx)
	})
}

// activeRuleSet returns the cached rule set, reloading once the cache entry expires.
// If that reload fails the last good rule set is served.
func (s *Server) activeRuleSet(ctx context.Context) rules.RuleSet {
	if ruleSet := s.cache.Get(); ruleSet != nil {
		return ruleSet
	}
	if err := s.Reload(ctx); err == nil {
		if ruleSet := s.cache.Get(); ruleSet != nil {
			return ruleSet
		}
	}
	return s.cache.Last()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:           "healthy",
		RuleSource:       s.source.Describe(),
		RulesLoaded:      len(s.cache.Last()),
		RulesFresh:       s.cache.IsValid(),
		ApplicantsSource: s.applicants != nil,
	})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	ruleSet := s.activeRuleSet(r.Context())
	respondJSON(w, http.StatusOK, RuleSetResponse{
		Source: s.source.Describe(),
		Count:  len(ruleSet),
		Rules:  ruleSet,
	})
}

func (s *Server) handleDefaultRules(w http.ResponseWriter, r *http.Request) {
	ruleSet := rules.DefaultRuleSet()
	respondJSON(w, http.StatusOK, RuleSetResponse{
		Source: "default",
		Count:  len(ruleSet),
		Rules:  ruleSet,
	})
}

func (s *Server) handleValidateRules(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body", err)
		return
	}

	var ruleSet rules.RuleSet
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		ruleSet, err = rules.ParseRuleSetYAML(body)
	} else {
		ruleSet, err = rules.ParseRuleSet(body)
	}
	if err != nil {
		s.respondParseError(w, err)
		return
	}

	findings := rules.Lint(ruleSet, applicant.Fields())
	if findings == nil {
		findings = []rules.Finding{}
	}
	respondJSON(w, http.StatusOK, ValidateResponse{
		Valid:     true,
		RuleCount: len(ruleSet),
		Findings:  findings,
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body", err)
		return
	}

	var req EvaluateRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	a := applicant.Defaults()
	if isPresent(req.Applicant) {
		if err := json.Unmarshal(req.Applicant, &a); err != nil {
			respondError(w, http.StatusBadRequest, "invalid applicant", err)
			return
		}
	}
	if err := s.validator.Validate(a); err != nil {
		s.respondConstraintError(w, err)
		return
	}

	ruleSet, source := s.activeRuleSet(r.Context()), s.source.Describe()
	if isPresent(req.Rules) {
		ruleSet, err = rules.ParseRuleSet(req.Rules)
		if err != nil {
			s.respondParseError(w, err)
			return
		}
		source = "request"
	}

	facts := a.Facts()
	result := s.engine.Evaluate(ruleSet, facts)
	s.metrics.RecordEvaluation(result)

	resp := newEvaluateResponse(uuid.New().String(), result, facts, source)
	resp.ApplicantID = a.ID
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvaluateApplicant(w http.ResponseWriter, r *http.Request) {
	if s.applicants == nil {
		respondError(w, http.StatusServiceUnavailable, "no applicant source configured", nil)
		return
	}

	applicantID := chi.URLParam(r, "applicantId")
	a, err := s.applicants.Get(r.Context(), applicantID)
	if errors.Is(err, applicant.ErrNotFound) {
		respondError(w, http.StatusNotFound, "applicant not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load applicant", err)
		return
	}
	if err := s.validator.Validate(*a); err != nil {
		s.respondConstraintError(w, err)
		return
	}

	facts := a.Facts()
	result := s.engine.Evaluate(s.activeRuleSet(r.Context()), facts)
	s.metrics.RecordEvaluation(result)

	resp := newEvaluateResponse(uuid.New().String(), result, facts, s.source.Describe())
	resp.ApplicantID = a.ID
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if s.cfg.Server.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	}
	return io.ReadAll(r.Body)
}

func (s *Server) respondParseError(w http.ResponseWriter, err error) {
	var perr *rules.ParseError
	if !errors.As(err, &perr) {
		respondError(w, http.StatusUnprocessableEntity, "invalid rule set", err)
		return
	}
	s.metrics.RecordParseError(perr.Kind)
	respondJSON(w, http.StatusUnprocessableEntity, ParseErrorResponse{
		Error:   "invalid rule set",
		Kind:    perr.Kind,
		Message: perr.Message,
		Line:    perr.Line,
		Column:  perr.Column,
		Path:    perr.Path,
	})
}

func (s *Server) respondConstraintError(w http.ResponseWriter, err error) {
	var cerr *applicant.ConstraintError
	if !errors.As(err, &cerr) {
		respondError(w, http.StatusBadRequest, "invalid applicant", err)
		return
	}
	respondJSON(w, http.StatusBadRequest, ConstraintErrorResponse{
		Error:      "invalid applicant",
		Violations: cerr.Violations,
	})
}

// requestLogger logs each request and records it in the HTTP metrics
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		// Unrouted paths share one label value.
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.RecordRequest(r.Method, route, status, duration)

		switch {
		case status >= 500:
			logger.ErrorHttp5xx()
		case status >= 400:
			logger.WarnHttp4xx(status)
		}
		if duration > slowRequestThreshold {
			logger.WarnSlowRequest()
		}

		logger.Debug("HTTP request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"duration", duration,
		)
	})
}

func isPresent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}
