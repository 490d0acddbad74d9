package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/opendgw/odg/pkg/constants"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	AccessDecisions  *prometheus.CounterVec
	RateLimitHits    *prometheus.CounterVec
	RetrievalLatency *prometheus.HistogramVec
	CacheEvents      *prometheus.CounterVec
}

// NewMetrics creates and registers the gateway metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		AccessDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odg_access_decisions_total",
				Help: "Total access decisions by terminal reason.",
			},
			[]string{"reason"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odg_rate_limit_hits_total",
				Help: "Total quota denials by tier.",
			},
			[]string{"tier"},
		),
		RetrievalLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "odg_retrieval_latency_seconds",
				Help:    "Latency of resource retrieval operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CacheEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odg_resource_cache_events_total",
				Help: "Resource cache hits, misses and evictions.",
			},
			[]string{"event"},
		),
	}
}

// RecordDecision records a terminal access decision.
func (m *Metrics) RecordDecision(reason constants.DecisionReason) {
	m.AccessDecisions.WithLabelValues(string(reason)).Inc()
}

// RecordRateLimitHit records a quota denial.
func (m *Metrics) RecordRateLimitHit(tier constants.TierLevel) {
	m.RateLimitHits.WithLabelValues(string(tier)).Inc()
}

// RecordRetrieval records a retrieval operation's latency.
func (m *Metrics) RecordRetrieval(operation string, duration time.Duration) {
	m.RetrievalLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheEvent records a cache hit, miss or eviction.
func (m *Metrics) RecordCacheEvent(event string) {
	m.CacheEvents.WithLabelValues(event).Inc()
}
