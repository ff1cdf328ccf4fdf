package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records metrics to a dedicated Prometheus registry and keeps an
// in-process summary for the status endpoint.
//
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	actions         *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	tokens          *prometheus.CounterVec
	cost            *prometheus.CounterVec
	templates       *prometheus.CounterVec
	remoteRefreshes *prometheus.CounterVec

	mu      sync.Mutex
	summary Summary
}

// NewRecorder creates a recorder backed by a fresh registry that also carries
// the Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messiahx_actions_total",
				Help: "Total number of actions by feature, provider and outcome",
			},
			[]string{"feature", "provider", "outcome"},
		),
		actionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "messiahx_action_duration_seconds",
				Help:    "Duration of model-backed actions in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"feature", "provider"},
		),
		tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messiahx_model_tokens_total",
				Help: "Tokens consumed by model calls",
			},
			[]string{"provider", "kind"},
		),
		cost: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messiahx_model_cost_usd_total",
				Help: "Reported model cost in USD",
			},
			[]string{"provider"},
		),
		templates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messiahx_template_resolutions_total",
				Help: "Template body resolutions by source",
			},
			[]string{"feature", "source"},
		),
		remoteRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messiahx_remote_refreshes_total",
				Help: "Remote configuration refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		summary: newSummary(),
	}
}

// Record stores a single action metric.
func (r *Recorder) Record(m Metric) {
	if r == nil {
		return
	}
	provider := m.Provider
	if provider == "" {
		provider = "none"
	}

	r.actions.WithLabelValues(m.Feature, provider, string(m.Outcome)).Inc()
	if m.TotalSeconds > 0 {
		r.actionDuration.WithLabelValues(m.Feature, provider).Observe(m.TotalSeconds)
	}
	if m.PromptTokens > 0 {
		r.tokens.WithLabelValues(provider, "prompt").Add(float64(m.PromptTokens))
	}
	if m.CompletionTokens > 0 {
		r.tokens.WithLabelValues(provider, "completion").Add(float64(m.CompletionTokens))
	}
	if m.CostUSD > 0 {
		r.cost.WithLabelValues(provider).Add(m.CostUSD)
	}

	r.mu.Lock()
	r.summary.add(m)
	r.mu.Unlock()
}

// RecordTemplate counts one resolved template body.
func (r *Recorder) RecordTemplate(feature, source string) {
	if r == nil {
		return
	}
	r.templates.WithLabelValues(feature, source).Inc()
}

// RecordRefresh counts one remote configuration refresh attempt.
func (r *Recorder) RecordRefresh(err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.remoteRefreshes.WithLabelValues(outcome).Inc()
}

// Summary returns a snapshot of the in-process aggregate.
func (r *Recorder) Summary() Summary {
	if r == nil {
		return newSummary()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary.clone()
}

// Handler returns the HTTP handler exposing the registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
