package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seismon_cache_hits_total",
		Help: "Number of cache-aside reads served from the store.",
	})
	misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seismon_cache_misses_total",
		Help: "Number of cache-aside reads that fell through to the upstream fetch.",
	})
	bypasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seismon_cache_bypasses_total",
		Help: "Number of cache-aside reads skipped because the store was unhealthy.",
	})
)
