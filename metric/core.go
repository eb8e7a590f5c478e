package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "enose"

// Metrics contains the relay-level metrics shared by all components.
// Record methods are no-ops on a nil *Metrics so components can run without
// a registry in tests.
type Metrics struct {
	FramesReceived     *prometheus.CounterVec
	FramesRejected     *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	EventsDropped      prometheus.Counter
	CommandsReceived   *prometheus.CounterVec
	SessionsActive     *prometheus.GaugeVec
	SessionsTotal      *prometheus.CounterVec
	ObserverWriteBytes prometheus.Counter
	RecorderRows       prometheus.Counter
	NATSConnected      prometheus.Gauge
	NATSPublished      *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "frames_received_total",
				Help:      "Device frames received, by discriminator",
			},
			[]string{"type"},
		),

		FramesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "frames_rejected_total",
				Help:      "Device frames skipped, by reason (malformed, invalid_reading, unknown_type)",
			},
			[]string{"reason"},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "events_published_total",
				Help:      "Events published on the bus, by kind",
			},
			[]string{"kind"},
		),

		EventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "events_dropped_total",
				Help:      "Events dropped from lagging subscriber queues",
			},
		),

		CommandsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "observer",
				Name:      "commands_received_total",
				Help:      "Command lines received from observers, by transport",
			},
			[]string{"transport"},
		),

		SessionsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "active",
				Help:      "Currently open sessions, by role (device, observer, websocket)",
			},
			[]string{"role"},
		),

		SessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "opened_total",
				Help:      "Sessions opened since start, by role",
			},
			[]string{"role"},
		),

		ObserverWriteBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "observer",
				Name:      "written_bytes_total",
				Help:      "Bytes written to observer connections",
			},
		),

		RecorderRows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "recorder",
				Name:      "rows_written_total",
				Help:      "Readings appended to the CSV recording",
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "published_total",
				Help:      "Events mirrored to NATS, by kind",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FramesReceived,
		m.FramesRejected,
		m.EventsPublished,
		m.EventsDropped,
		m.CommandsReceived,
		m.SessionsActive,
		m.SessionsTotal,
		m.ObserverWriteBytes,
		m.RecorderRows,
		m.NATSConnected,
		m.NATSPublished,
	}
}

// RecordFrame increments the received frame counter for a discriminator
func (m *Metrics) RecordFrame(frameType string) {
	if m == nil {
		return
	}
	m.FramesReceived.WithLabelValues(frameType).Inc()
}

// RecordRejection increments the rejected frame counter
func (m *Metrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.FramesRejected.WithLabelValues(reason).Inc()
}

// RecordPublish increments the published event counter
func (m *Metrics) RecordPublish(kind string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(kind).Inc()
}

// RecordDrop increments the dropped event counter
func (m *Metrics) RecordDrop() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

// RecordCommand increments the command counter for a transport
func (m *Metrics) RecordCommand(transport string) {
	if m == nil {
		return
	}
	m.CommandsReceived.WithLabelValues(transport).Inc()
}

// SessionOpened records a new session for a role
func (m *Metrics) SessionOpened(role string) {
	if m == nil {
		return
	}
	m.SessionsActive.WithLabelValues(role).Inc()
	m.SessionsTotal.WithLabelValues(role).Inc()
}

// SessionClosed records the end of a session for a role
func (m *Metrics) SessionClosed(role string) {
	if m == nil {
		return
	}
	m.SessionsActive.WithLabelValues(role).Dec()
}

// RecordWrite adds n bytes to the observer write counter
func (m *Metrics) RecordWrite(n int) {
	if m == nil {
		return
	}
	m.ObserverWriteBytes.Add(float64(n))
}

// RecordRow increments the recorder row counter
func (m *Metrics) RecordRow() {
	if m == nil {
		return
	}
	m.RecorderRows.Inc()
}

// RecordNATSStatus updates NATS connection status
func (m *Metrics) RecordNATSStatus(connected bool) {
	if m == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordNATSPublish increments the NATS mirror counter
func (m *Metrics) RecordNATSPublish(kind string) {
	if m == nil {
		return
	}
	m.NATSPublished.WithLabelValues(kind).Inc()
}
