// Package metrics exposes Prometheus instrumentation for graph evaluation.
// A nil *Metrics is valid and records nothing, so components take it as an
// optional dependency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "opgraph"

// Evaluation outcomes recorded by ObserveEvaluation.
const (
	ResultComputed = "computed"
	ResultCached   = "cached"
	ResultNotReady = "not_ready"
	ResultFailed   = "failed"
	ResultStale    = "stale"
)

// Metrics bundles the collectors used by the binder and the evaluator.
type Metrics struct {
	bindTotal    *prometheus.CounterVec
	bindDuration *prometheus.HistogramVec
	evaluations  *prometheus.CounterVec
	cacheEntries *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. Passing nil skips
// registration, which is handy in tests that only read the collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bindTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "binder",
			Name:      "bind_total",
			Help:      "Number of operator bind attempts by operator and result.",
		}, []string{"operator", "result"}),
		bindDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "binder",
			Name:      "bind_duration_seconds",
			Help:      "Time spent constructing an operator and computing its output.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"operator"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "evaluations_total",
			Help:      "Number of node evaluation requests by outcome.",
		}, []string{"result"}),
		cacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "cache_entries",
			Help:      "Number of evaluation cache entries by state.",
		}, []string{"state"}),
	}
	if reg != nil {
		reg.MustRegister(m.bindTotal, m.bindDuration, m.evaluations, m.cacheEntries)
	}
	return m
}

// ObserveBind records one bind attempt.
func (m *Metrics) ObserveBind(operator string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.bindTotal.WithLabelValues(operator, result).Inc()
	m.bindDuration.WithLabelValues(operator).Observe(elapsed.Seconds())
}

// ObserveEvaluation records the outcome of one evaluate call.
func (m *Metrics) ObserveEvaluation(result string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(result).Inc()
}

// SetCacheEntries publishes the current cache occupancy.
func (m *Metrics) SetCacheEntries(computed, unset int) {
	if m == nil {
		return
	}
	m.cacheEntries.WithLabelValues("computed").Set(float64(computed))
	m.cacheEntries.WithLabelValues("unset").Set(float64(unset))
}
