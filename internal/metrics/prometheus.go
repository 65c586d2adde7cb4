package metrics

import (
	"errors"
	"sync"

	"github.com/arloliu/shardalloc/types"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	stateTransitions *prometheus.CounterVec
	masterChanges    prometheus.Counter

	decisions        *prometheus.CounterVec
	rerouteDuration  *prometheus.HistogramVec
	unassignedShards prometheus.Gauge

	batchSize       *prometheus.HistogramVec
	batchResults    *prometheus.CounterVec
	publishDuration prometheus.Histogram
	publishedState  prometheus.Gauge

	shardReports *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "shardalloc" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "shardalloc"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

// register adds a collector to the registry, adopting the already
// registered instance when multiple coordinators share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(C)
		}
		panic(err)
	}

	return c
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = register(p.reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "state_transitions_total",
			Help:      "Total coordinator state transitions by from/to state.",
		}, []string{"from", "to"}))

		p.masterChanges = register(p.reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "master_changes_total",
			Help:      "Total observed master changes.",
		}))

		p.decisions = register(p.reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "decisions_total",
			Help:      "Aggregate decider outcomes by check kind.",
		}, []string{"check", "outcome"}))

		p.rerouteDuration = register(p.reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "reroute_duration_seconds",
			Help:      "Reroute pass duration in seconds by result.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"changed"}))

		p.unassignedShards = register(p.reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "unassigned_shards",
			Help:      "Unassigned shard copies after the last reroute pass.",
		}))

		p.batchSize = register(p.reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "pipeline",
			Name:      "batch_size",
			Help:      "Number of tasks coalesced per executed batch by source.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}, []string{"source"}))

		p.batchResults = register(p.reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "pipeline",
			Name:      "batches_total",
			Help:      "Executed batches by source and result.",
		}, []string{"source", "result"}))

		p.publishDuration = register(p.reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "pipeline",
			Name:      "publish_duration_seconds",
			Help:      "Cluster-state publish latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}))

		p.publishedState = register(p.reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "pipeline",
			Name:      "published_state_version",
			Help:      "Version of the most recently published cluster state.",
		}))

		p.shardReports = register(p.reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "shardstate",
			Name:      "reports_total",
			Help:      "Shard-state reports sent by this node by kind and outcome.",
		}, []string{"kind", "outcome"}))
	})
}

// RecordStateTransition records a coordinator state transition event.
func (p *PrometheusCollector) RecordStateTransition(from, to types.State, _ /* duration */ float64) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordMasterChange records a master change.
func (p *PrometheusCollector) RecordMasterChange(_ /* newMaster */ string) {
	p.ensureRegistered()
	p.masterChanges.Inc()
}

// RecordDecision records the aggregate outcome of one decider check.
func (p *PrometheusCollector) RecordDecision(check, outcome string) {
	p.ensureRegistered()
	p.decisions.WithLabelValues(check, outcome).Inc()
}

// RecordReroute records a completed reroute pass.
func (p *PrometheusCollector) RecordReroute(_ /* reason */ string, changed bool, duration float64) {
	p.ensureRegistered()
	label := "false"
	if changed {
		label = "true"
	}
	p.rerouteDuration.WithLabelValues(label).Observe(duration)
}

// RecordUnassignedShards sets the current unassigned shard count.
func (p *PrometheusCollector) RecordUnassignedShards(count int) {
	p.ensureRegistered()
	p.unassignedShards.Set(float64(count))
}

// RecordBatch records one executed task batch.
func (p *PrometheusCollector) RecordBatch(source string, size int, success bool) {
	p.ensureRegistered()
	p.batchSize.WithLabelValues(source).Observe(float64(size))
	result := "success"
	if !success {
		result = "failure"
	}
	p.batchResults.WithLabelValues(source, result).Inc()
}

// RecordStatePublish records a published cluster state.
func (p *PrometheusCollector) RecordStatePublish(version int64, duration float64) {
	p.ensureRegistered()
	p.publishDuration.Observe(duration)
	p.publishedState.Set(float64(version))
}

// RecordShardReport records one shard-state report sent by this node.
func (p *PrometheusCollector) RecordShardReport(kind, outcome string) {
	p.ensureRegistered()
	p.shardReports.WithLabelValues(kind, outcome).Inc()
}
