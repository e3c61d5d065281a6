package orchestrator

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stemd",
			Name:      "jobs_total",
			Help:      "Separation jobs by architecture and outcome",
		},
		[]string{"arch", "outcome"},
	)
	fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stemd",
			Name:      "fallbacks_total",
			Help:      "GPU to CPU fallback retries",
		},
		[]string{"arch"},
	)
	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stemd",
			Name:      "job_duration_seconds",
			Help:      "Wall time of admitted separation jobs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"arch"},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal, fallbacksTotal, jobDuration)
}
