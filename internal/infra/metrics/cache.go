package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(catalogCacheLookups) }

var catalogCacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_cache_lookups_total",
		Help: "Redis lookups in front of the product catalog, by cache and outcome (hit/miss).",
	},
	[]string{"cache", "outcome"},
)

func IncCacheLookup(cache, outcome string) {
	catalogCacheLookups.WithLabelValues(norm(cache), norm(outcome)).Inc()
}
