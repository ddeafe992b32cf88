// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RetrievalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_retrieval_requests_total",
			Help: "Total number of candidate retrieval requests",
		},
		[]string{"outcome"},
	)

	CandidatesScored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_candidates_scored",
			Help:    "Number of candidates scored per retrieval request",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "engine_scoring_duration_seconds",
			Help: "Duration of compatibility scoring per request",
		},
	)

	AffinityCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_affinity_cache_lookups_total",
			Help: "Industry affinity cache lookups by result",
		},
		[]string{"result"},
	)

	Swipes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_swipes_total",
			Help: "Total swipes recorded by direction and resulting status",
		},
		[]string{"direction", "status"},
	)

	MutualMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_mutual_matches_total",
			Help: "Total mutual matches created",
		},
	)

	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_quota_rejections_total",
			Help: "Requests rejected by the usage gate",
		},
		[]string{"action"},
	)
)
