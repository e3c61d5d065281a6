package resolver

import "github.com/prometheus/client_golang/prometheus"

var resolutionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stemd",
		Name:      "resolutions_total",
		Help:      "Model configurations resolved, by winning tier",
	},
	[]string{"source"},
)

func init() {
	prometheus.MustRegister(resolutionsTotal)
}
