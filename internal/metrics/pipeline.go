package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and pipeline Prometheus metrics.
var (
	RetrievalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bshr",
			Name:      "retrieval_total",
			Help:      "Retrieval lookups by source and outcome",
		},
		[]string{"source", "result"}, // "found" / "miss" / "error"
	)

	RetrievalCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bshr",
			Name:      "retrieval_cache_total",
			Help:      "Retrieval cache hits and misses",
		},
		[]string{"source", "result"},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bshr",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome",
		},
		[]string{"status"},
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bshr",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each pipeline stage",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	TournamentRounds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bshr",
			Name:      "tournament_rounds",
			Help:      "Rounds needed to reduce hypotheses to a winner",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers retrieval and pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalTotal)
	prometheus.MustRegister(RetrievalCacheTotal)
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(TournamentRounds)
	pipelineMetricsRegistered = true
}
