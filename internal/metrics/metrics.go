package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/scholarship/internal/logger"
	"github.com/liamcoop/scholarship/rules"
)

const namespace = "scholarship"

const (
	// NoMatchDecision labels evaluations where no rule fired
	NoMatchDecision = "NONE"

	// OtherDecision labels decisions outside the built-in set. Rule sets can come
	// from request bodies, so their decisions are not used as label values.
	OtherDecision = "OTHER"
)

var knownDecisions = map[rules.Decision]bool{
	rules.DecisionAwardFull:    true,
	rules.DecisionAwardPartial: true,
	rules.DecisionReview:       true,
	rules.DecisionReject:       true,
	rules.DecisionUnknown:      true,
}

func decisionLabel(d rules.Decision) string {
	if knownDecisions[d] {
		return string(d)
	}
	return OtherDecision
}

// Collector owns the advisor's Prometheus registry.
//
// Metrics:
//   - scholarship_evaluations_total: evaluations by decision (built-in decisions, OTHER or NONE) and outcome
//   - scholarship_evaluation_duration_seconds: rule selection latency
//   - scholarship_rule_set_parse_errors_total: rejected rule sets by error kind
//   - scholarship_rule_set_reloads_total: rule set reloads by result
//   - scholarship_rule_set_rules: rules in the active set
//   - scholarship_http_requests_total, scholarship_http_request_duration_seconds
type Collector struct {
	registry *prometheus.Registry

	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	parseErrorsTotal   *prometheus.CounterVec
	reloadsTotal       *prometheus.CounterVec
	activeRules        prometheus.Gauge
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

// NewCollector creates and registers every metric. A nil registry gets a fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of applicant evaluations",
			},
			[]string{"decision", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of rule selection in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),

		parseErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_set_parse_errors_total",
				Help:      "Total number of rejected rule sets",
			},
			[]string{"kind"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_set_reloads_total",
				Help:      "Total number of rule set reloads",
			},
			[]string{"result"},
		),

		activeRules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rule_set_rules",
				Help:      "Number of rules in the active rule set",
			},
		),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.evaluationsTotal,
		c.evaluationDuration,
		c.parseErrorsTotal,
		c.reloadsTotal,
		c.activeRules,
		c.requestsTotal,
		c.requestDuration,
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: namespace, Name: "log_errors_total", Help: "Errors logged, before sampling"},
			func() float64 { return float64(logger.TotalErrors.Load()) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: namespace, Name: "log_warnings_total", Help: "Warnings logged, before sampling"},
			func() float64 { return float64(logger.TotalWarnings.Load()) },
		),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// RecordEvaluation records one engine evaluation
func (c *Collector) RecordEvaluation(result *rules.EvaluationResult) {
	decision, outcome := NoMatchDecision, "no_match"
	if result.Matched {
		decision, outcome = decisionLabel(result.Decision), "matched"
	}
	c.evaluationsTotal.WithLabelValues(decision, outcome).Inc()
	c.evaluationDuration.Observe(result.Duration.Seconds())
}

// RecordParseError records a rejected rule set
func (c *Collector) RecordParseError(kind rules.ErrorKind) {
	c.parseErrorsTotal.WithLabelValues(string(kind)).Inc()
}

// RecordReload records a reload attempt. On success ruleCount becomes the active size.
func (c *Collector) RecordReload(ok bool, ruleCount int) {
	if !ok {
		c.reloadsTotal.WithLabelValues("failure").Inc()
		return
	}
	c.reloadsTotal.WithLabelValues("success").Inc()
	c.activeRules.Set(float64(ruleCount))
}

// RecordRequest records a served HTTP request
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry used by this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
