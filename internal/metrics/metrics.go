// Package metrics wraps the Prometheus collectors of the sync engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records sync engine telemetry. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	flushed         prometheus.Counter
	dropped         prometheus.Counter
	retained        prometheus.Counter
	queued          *prometheus.CounterVec
	pending         prometheus.Gauge
	refreshFailures *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec
	remoteRequests  *prometheus.CounterVec
	online          prometheus.Gauge
}

// NewCollector creates a collector on its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "lifesync"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.flushed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "flushed_total",
		Help:      "Pending changes replayed successfully",
	})
	c.dropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "dropped_total",
		Help:      "Pending changes dropped after a permanent rejection",
	})
	c.retained = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "retained_total",
		Help:      "Pending changes kept for retry after a transient failure",
	})
	c.queued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "enqueued_total",
		Help:      "Writes deferred to the pending queue",
	}, []string{"kind", "result"})
	c.pending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "pending",
		Help:      "Pending changes waiting for replay",
	})
	c.refreshFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "refresh_failures_total",
		Help:      "Failed cache refreshes per domain",
	}, []string{"domain"})
	c.syncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Time taken by a sync phase",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"phase"})
	c.remoteRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "remote",
		Name:      "requests_total",
		Help:      "Remote API requests by method and status class",
	}, []string{"method", "status"})
	c.online = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "remote",
		Name:      "online",
		Help:      "1 when the last connectivity probe succeeded",
	})

	c.registry.MustRegister(
		c.flushed,
		c.dropped,
		c.retained,
		c.queued,
		c.pending,
		c.refreshFailures,
		c.syncDuration,
		c.remoteRequests,
		c.online,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordFlush records the outcome of one queue drain.
func (c *Collector) RecordFlush(flushed, dropped, retained int) {
	if c == nil {
		return
	}
	c.flushed.Add(float64(flushed))
	c.dropped.Add(float64(dropped))
	c.retained.Add(float64(retained))
}

// RecordEnqueue records a deferred write. result is "queued" or "coalesced".
func (c *Collector) RecordEnqueue(kind, result string) {
	if c == nil {
		return
	}
	c.queued.WithLabelValues(kind, result).Inc()
}

func (c *Collector) RecordPending(n int) {
	if c == nil {
		return
	}
	c.pending.Set(float64(n))
}

func (c *Collector) RecordRefreshFailure(domain string) {
	if c == nil {
		return
	}
	c.refreshFailures.WithLabelValues(domain).Inc()
}

func (c *Collector) RecordSyncPhase(phase string, d time.Duration) {
	if c == nil {
		return
	}
	c.syncDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordRemoteRequest counts a remote call. status 0 means transport error.
func (c *Collector) RecordRemoteRequest(method string, status int) {
	if c == nil {
		return
	}
	class := "error"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	case status >= 200:
		class = "2xx"
	}
	c.remoteRequests.WithLabelValues(method, class).Inc()
}

func (c *Collector) RecordOnline(online bool) {
	if c == nil {
		return
	}
	if online {
		c.online.Set(1)
		return
	}
	c.online.Set(0)
}
