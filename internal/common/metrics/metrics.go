// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CodecFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_codec_failures_total",
			Help: "Total number of recovered codec failures",
		},
		[]string{"op", "stage"},
	)

	CodecTokenBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_codec_token_bytes",
			Help:    "Length of encoded filter tokens",
			Buckets: prometheus.ExponentialBuckets(16, 2, 8),
		},
	)

	ReconcilerMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_reconciler_length_mismatches_total",
			Help: "Locality id/name pairs truncated because the lists differ in length",
		},
	)

	StoreMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_store_mutations_total",
			Help: "Total number of filter store mutations",
		},
		[]string{"action"},
	)

	URLWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_url_writes_total",
			Help: "Total number of URL replacements made by the sync controller",
		},
		[]string{"kind"},
	)

	SearchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Total number of remote search queries by outcome",
		},
		[]string{"backend", "status"},
	)

	SearchCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"result"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_sessions_active",
			Help: "Number of mounted search sessions",
		},
	)
)
