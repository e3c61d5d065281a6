package hasher

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stemd",
		Subsystem: "hash_cache",
		Name:      "hits_total",
		Help:      "Fingerprint lookups served from the cache",
	})
	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stemd",
		Subsystem: "hash_cache",
		Name:      "misses_total",
		Help:      "Fingerprint lookups that read the artifact",
	})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses)
}
