// Package metrics exposes the indexer's Prometheus gauges and counters,
// following the same registry-per-process, MustRegister-at-construction
// pattern as the teacher's system health logger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the gauges and counters the pipeline, reorg engine and
// ingestor update as they run.
type Metrics struct {
	Registry *prometheus.Registry

	OpScoreLast     prometheus.Gauge
	VspcRingSize    prometheus.Gauge
	RollbackRing    prometheus.Gauge
	BatchesApplied  prometheus.Counter
	OpsAccepted     prometheus.Counter
	OpsRejected     *prometheus.CounterVec
	RollbacksTotal  prometheus.Counter
	NodeRetryTotal  prometheus.Counter
	IngestLoopIters prometheus.Counter
}

// New constructs and registers all metrics against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		OpScoreLast: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "krc20_op_score_last",
			Help: "Highest committed op_score.",
		}),
		VspcRingSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "krc20_vspc_ring_size",
			Help: "Number of entries currently held in the VSPC ring.",
		}),
		RollbackRing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "krc20_rollback_ring_size",
			Help: "Number of rollback records currently retained.",
		}),
		BatchesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "krc20_batches_applied_total",
			Help: "Number of batches committed.",
		}),
		OpsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "krc20_ops_accepted_total",
			Help: "Number of operations accepted and applied to state.",
		}),
		OpsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "krc20_ops_rejected_total",
			Help: "Number of operations rejected, labelled by reject kind.",
		}, []string{"kind"}),
		RollbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "krc20_rollbacks_total",
			Help: "Number of rollback records rewound.",
		}),
		NodeRetryTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "krc20_node_retry_total",
			Help: "Number of retried node RPC calls.",
		}),
		IngestLoopIters: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "krc20_ingest_loop_iterations_total",
			Help: "Number of ingestor loop iterations run.",
		}),
	}
	reg.MustRegister(
		m.OpScoreLast,
		m.VspcRingSize,
		m.RollbackRing,
		m.BatchesApplied,
		m.OpsAccepted,
		m.OpsRejected,
		m.RollbacksTotal,
		m.NodeRetryTotal,
		m.IngestLoopIters,
	)
	return m
}

// Handler serves the registry's metrics in the Prometheus text exposition
// format, for cmd/krc20explorer to mount at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
