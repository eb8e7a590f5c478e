package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
)

// Metrics holds Prometheus metrics for a family of buffers. The queued gauge
// is the total number of items held across every buffer sharing it.
type Metrics struct {
	writes prometheus.Counter
	reads  prometheus.Counter
	drops  prometheus.Counter
	queued prometheus.Gauge
}

// NewMetrics creates buffer metrics labelled with component and registers
// them. A nil registry yields nil metrics, which buffers ignore.
func NewMetrics(registry *metric.MetricsRegistry, component string) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"component": component}
	m := &Metrics{
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "enose",
			Subsystem:   "buffer",
			Name:        "writes_total",
			ConstLabels: labels,
			Help:        "Total number of buffer write operations",
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "enose",
			Subsystem:   "buffer",
			Name:        "reads_total",
			ConstLabels: labels,
			Help:        "Total number of buffer read operations",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "enose",
			Subsystem:   "buffer",
			Name:        "drops_total",
			ConstLabels: labels,
			Help:        "Total number of items dropped due to overflow",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "enose",
			Subsystem:   "buffer",
			Name:        "queued",
			ConstLabels: labels,
			Help:        "Items currently held across all buffers of this component",
		}),
	}

	if err := registry.RegisterCounter(component, "buffer_writes", m.writes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(component, "buffer_reads", m.reads); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(component, "buffer_drops", m.drops); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(component, "buffer_queued", m.queued); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) recordWrite() {
	if m == nil {
		return
	}
	m.writes.Inc()
	m.queued.Inc()
}

func (m *Metrics) recordRead(n int) {
	if m == nil || n == 0 {
		return
	}
	m.reads.Add(float64(n))
	m.queued.Sub(float64(n))
}

// recordDrop counts an evicted item, which had been queued.
func (m *Metrics) recordDrop() {
	if m == nil {
		return
	}
	m.drops.Inc()
	m.queued.Dec()
}

func (m *Metrics) recordDiscard(n int) {
	if m == nil || n == 0 {
		return
	}
	m.queued.Sub(float64(n))
}
