package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	feedFetch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "castboard",
			Name:      "feed_fetch_total",
			Help:      "Count of sheet feed fetches by feed and result.",
		},
		[]string{"feed", "result"},
	)

	rowsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "castboard",
			Name:      "rows_dropped_total",
			Help:      "Count of sheet rows dropped during parsing by reason.",
		},
		[]string{"reason"},
	)

	workersMerged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "castboard",
			Name:      "workers_merged_total",
			Help:      "Count of roster rows merged into an existing worker.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "castboard",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by handler.",
		},
		[]string{"handler"},
	)

	writebacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "castboard",
			Name:      "sheet_writeback_total",
			Help:      "Count of reception sheet writes by kind and result.",
		},
		[]string{"kind", "result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(feedFetch, rowsDropped, workersMerged, httpRequests, writebacks)
	})
}

func IncFeedFetch(feed, result string) {
	feedFetch.WithLabelValues(feed, result).Inc()
}

func IncRowsDropped(reason string, n int) {
	rowsDropped.WithLabelValues(reason).Add(float64(n))
}

func IncWorkersMerged(n int) {
	workersMerged.Add(float64(n))
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func IncWriteback(kind, result string) {
	writebacks.WithLabelValues(kind, result).Inc()
}
