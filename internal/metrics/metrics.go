// Package metrics owns the process prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

type Metrics struct {
	Registry *prometheus.Registry

	MatchesApplied     *prometheus.CounterVec
	Reorders           *prometheus.CounterVec
	InvariantRefusals  *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	ImportedDocuments  *prometheus.CounterVec
	ApplyMatchDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		MatchesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ladder",
			Name:      "matches_applied_total",
			Help:      "Approved matches applied to a ladder.",
		}, []string{"ladder", "kind"}),
		Reorders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ladder",
			Name:      "position_reorders_total",
			Help:      "Matches that changed ladder positions.",
		}, []string{"ladder"}),
		InvariantRefusals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ladder",
			Name:      "invariant_refusals_total",
			Help:      "Transitions refused because positions were not dense.",
		}, []string{"ladder"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ladder",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by data class and outcome.",
		}, []string{"class", "result"}),
		ImportedDocuments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ladder",
			Name:      "imported_documents_total",
			Help:      "Documents imported from the remote store.",
		}, []string{"ladder", "type"}),
		ApplyMatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ladder",
			Name:      "apply_match_duration_seconds",
			Help:      "Time spent applying one match, lock wait included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"ladder"}),
	}

	reg.MustRegister(
		m.MatchesApplied,
		m.Reorders,
		m.InvariantRefusals,
		m.CacheLookups,
		m.ImportedDocuments,
		m.ApplyMatchDuration,
	)
	return m
}

// CacheResult records a hit or miss for a cache data class.
func (m *Metrics) CacheResult(class string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(class, result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

var Module = fx.Provide(New)
