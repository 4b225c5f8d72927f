// Package metrics registers the Prometheus collectors for the browser core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnnouncesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ren_announces_received_total",
		Help: "Announces received, by aspect.",
	}, []string{"aspect"})

	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ren_pages_fetched_total",
		Help: "Pages fetched successfully.",
	})

	PageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ren_page_failures_total",
		Help: "Page fetches that ended in an error, by reason.",
	}, []string{"reason"})

	PageCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ren_page_cache_hits_total",
		Help: "Page fetches served from the local page cache.",
	})

	LinkCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ren_link_cache_hits_total",
		Help: "Link establishments served from the cache fast path.",
	})

	LinkCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ren_link_cache_misses_total",
		Help: "Link establishments that had to open a new link.",
	})

	MessagesQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ren_messages_queued_total",
		Help: "Outbound messages accepted into the send queue.",
	})
)
