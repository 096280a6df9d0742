package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics the build and search paths emit.
// Scope is deliberately narrow: no request/tenant/cache metrics, since
// serving and multi-tenancy are out of scope for the core engine.
type Metrics struct {
	// Build metrics
	BuildDuration    prometheus.Histogram
	NodesInserted    prometheus.Counter
	NodesPerLayer    *prometheus.GaugeVec
	BatchInsertTotal prometheus.Counter

	// Search metrics
	SearchLatency      prometheus.Histogram
	CandidatesVisited  prometheus.Histogram
	CoarseCandidates   prometheus.Histogram
	RerankedCandidates prometheus.Histogram

	// Integrity metrics
	ChecksumFailures prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		BuildDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hnswann_build_duration_seconds",
				Help:    "Time taken to build a complete index",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300, 600},
			},
		),
		NodesInserted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hnswann_nodes_inserted_total",
				Help: "Total number of vectors inserted into the graph",
			},
		),
		NodesPerLayer: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hnswann_nodes_per_layer",
				Help: "Number of nodes present at each HNSW layer",
			},
			[]string{"layer"},
		),
		BatchInsertTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hnswann_batch_insert_total",
				Help: "Total number of batch insert operations",
			},
		),

		SearchLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hnswann_search_latency_seconds",
				Help:    "End-to-end search latency, including coarse traversal and rerank",
				Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
		),
		CandidatesVisited: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hnswann_search_candidates_visited",
				Help:    "Number of graph nodes visited during a search",
				Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
			},
		),
		CoarseCandidates: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hnswann_search_coarse_candidates",
				Help:    "Number of candidates surviving the quantized coarse search",
				Buckets: []float64{10, 25, 50, 100, 250, 500},
			},
		),
		RerankedCandidates: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hnswann_search_reranked_candidates",
				Help:    "Number of candidates passed through full-precision rerank",
				Buckets: []float64{5, 10, 25, 50, 100},
			},
		),

		ChecksumFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hnswann_checksum_failures_total",
				Help: "Total number of CRC32 verification failures on index load",
			},
		),
	}
}

// RecordBuild records a completed build operation.
func (m *Metrics) RecordBuild(duration time.Duration, nodeCount int) {
	m.BuildDuration.Observe(duration.Seconds())
	m.NodesInserted.Add(float64(nodeCount))
}

// RecordBatchInsert records a batch insert operation.
func (m *Metrics) RecordBatchInsert() {
	m.BatchInsertTotal.Inc()
}

// UpdateNodesPerLayer updates the per-layer node gauge.
func (m *Metrics) UpdateNodesPerLayer(layer string, count int) {
	m.NodesPerLayer.WithLabelValues(layer).Set(float64(count))
}

// RecordSearch records a completed two-stage search.
func (m *Metrics) RecordSearch(duration time.Duration, visited, coarse, reranked int) {
	m.SearchLatency.Observe(duration.Seconds())
	m.CandidatesVisited.Observe(float64(visited))
	m.CoarseCandidates.Observe(float64(coarse))
	m.RerankedCandidates.Observe(float64(reranked))
}

// RecordChecksumFailure records a CRC32 verification failure.
func (m *Metrics) RecordChecksumFailure() {
	m.ChecksumFailures.Inc()
}
