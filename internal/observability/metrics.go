package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of the graph engine and its HTTP
// surface. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec

	// Graph index metrics
	IndexRebuilds        prometheus.Counter
	IndexRebuildDuration prometheus.Histogram
	IndexHits            prometheus.Counter
	IndexMisses          prometheus.Counter
	IndexInvalidations   prometheus.Counter
	IndexNodes           prometheus.Gauge
	IndexEdges           prometheus.Gauge
}

// NewCollector creates a collector registered on its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of graph store operations",
			},
			[]string{"backend", "operation", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Graph store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
		IndexRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_index_rebuilds_total",
			Help:      "Total number of graph index rebuilds",
		}),
		IndexRebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_index_rebuild_duration_seconds",
			Help:      "Graph index rebuild duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		IndexHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_index_hits_total",
			Help:      "Traversal reads served by an already built index",
		}),
		IndexMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_index_misses_total",
			Help:      "Traversal reads that had to rebuild the index",
		}),
		IndexInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_index_invalidations_total",
			Help:      "Total number of graph index invalidations",
		}),
		IndexNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_index_nodes",
			Help:      "Nodes in the last built graph index",
		}),
		IndexEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_index_edges",
			Help:      "Edges in the last built graph index",
		}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.StoreOperations,
		c.StoreDuration,
		c.IndexRebuilds,
		c.IndexRebuildDuration,
		c.IndexHits,
		c.IndexMisses,
		c.IndexInvalidations,
		c.IndexNodes,
		c.IndexEdges,
	)

	return c
}

// Registry returns the registry the metrics live in
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveStoreOp records one engine operation
func (c *Collector) ObserveStoreOp(backend, op, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.StoreOperations.WithLabelValues(backend, op, status).Inc()
	c.StoreDuration.WithLabelValues(backend, op).Observe(d.Seconds())
}

// ObserveIndexRebuild records a rebuild and the resulting index size
func (c *Collector) ObserveIndexRebuild(nodes, edges int, d time.Duration) {
	if c == nil {
		return
	}
	c.IndexRebuilds.Inc()
	c.IndexMisses.Inc()
	c.IndexRebuildDuration.Observe(d.Seconds())
	c.IndexNodes.Set(float64(nodes))
	c.IndexEdges.Set(float64(edges))
}

// ObserveIndexHit records a read served without a rebuild
func (c *Collector) ObserveIndexHit() {
	if c == nil {
		return
	}
	c.IndexHits.Inc()
}

// ObserveIndexInvalidation records a write-triggered invalidation
func (c *Collector) ObserveIndexInvalidation() {
	if c == nil {
		return
	}
	c.IndexInvalidations.Inc()
}

// ObserveHTTP records one HTTP request
func (c *Collector) ObserveHTTP(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
