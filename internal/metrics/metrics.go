package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "evolution_profiles"

// Enrichment outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeNotFound  = "not_found"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
	OutcomeSkipped   = "skipped"
)

// Cache results.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Metrics groups the collectors the service exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	enrichments *prometheus.CounterVec
	cache       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_enrichments_total",
			Help:      "Profile enrichment attempts by outcome.",
		}, []string{"outcome"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_cache_lookups_total",
			Help:      "GitHub identity cache lookups by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.enrichments, m.cache)
	}
	return m
}

func (m *Metrics) Enrichment(outcome string) {
	if m == nil {
		return
	}
	m.enrichments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(result).Inc()
}
