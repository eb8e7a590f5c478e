package natsmirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ianfajar-codes/SPS-Enose-Project/bus"
	"github.com/ianfajar-codes/SPS-Enose-Project/component"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
	"github.com/ianfajar-codes/SPS-Enose-Project/natsclient"
)

// Publisher sends one message to a subject. *natsclient.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Connector is a Publisher with a connection lifecycle.
type Connector interface {
	Publisher
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	IsHealthy() bool
}

// Deps holds runtime dependencies for the mirror. When Publisher is nil a
// natsclient.Client is created for Config.URL.
type Deps struct {
	Name            string
	Config          Config
	Bus             *bus.Bus
	Publisher       Publisher
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
}

// Mirror forwards bus events to NATS subjects
type Mirror struct {
	name      string
	config    Config
	bus       *bus.Bus
	publisher Publisher
	registry  *metric.MetricsRegistry
	metrics   *metric.Metrics
	logger    *slog.Logger

	lifecycleMu sync.Mutex
	running     atomic.Bool
	cancel      context.CancelFunc
	sub         *bus.Subscription
	wg          sync.WaitGroup
	startTime   time.Time

	published    atomic.Int64
	bytes        atomic.Int64
	failed       atomic.Int64
	lastActivity atomic.Value // time.Time
	lastError    atomic.Value // string
}

var (
	_ component.Discoverable       = (*Mirror)(nil)
	_ component.LifecycleComponent = (*Mirror)(nil)
	_ Connector                    = (*natsclient.Client)(nil)
)

// NewMirror creates a NATS mirror
func NewMirror(deps Deps) *Mirror {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "nats-mirror"
	}
	m := &Mirror{
		name:      name,
		config:    deps.Config,
		bus:       deps.Bus,
		publisher: deps.Publisher,
		registry:  deps.MetricsRegistry,
		metrics:   deps.MetricsRegistry.CoreMetrics(),
		logger:    logger.With("component", name),
		startTime: time.Now(),
	}
	m.lastActivity.Store(time.Time{})
	m.lastError.Store("")
	return m
}

// Subject returns the subject an event is mirrored to.
func (m *Mirror) Subject(ev message.Event) string {
	prefix := m.config.SubjectPrefix
	switch ev.Kind {
	case message.KindReading:
		return prefix + ".reading." + message.SubjectToken(ev.Reading.Sample)
	case message.KindStatus:
		return prefix + ".status." + message.SubjectToken(ev.Status.MsgType)
	case message.KindCommand:
		return prefix + ".command"
	}
	return prefix + ".unknown"
}

// Initialize validates the configuration and builds the NATS client when
// none was injected
func (m *Mirror) Initialize() error {
	if m.bus == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: nil bus", errors.ErrMissingConfig),
			"NATSMirror", "Initialize", "bus validation")
	}
	if err := m.config.Validate(); err != nil {
		return err
	}
	if m.publisher == nil {
		client, err := natsclient.NewClient(m.config.URL,
			natsclient.WithName("enose-relay"),
			natsclient.WithLogger(m.logger),
			natsclient.WithMetrics(m.registry),
		)
		if err != nil {
			return err
		}
		m.publisher = client
	}
	return nil
}

// Start subscribes to the bus. A Connector is dialed in the background so
// an unreachable broker never blocks relay startup.
func (m *Mirror) Start(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if m.running.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "NATSMirror", "Start", "check running state")
	}
	if m.publisher == nil {
		return errors.WrapInvalid(errors.ErrNotStarted, "NATSMirror", "Start", "check publisher")
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.sub = m.bus.Subscribe()
	m.startTime = time.Now()
	m.running.Store(true)

	if conn, ok := m.publisher.(Connector); ok {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := conn.Connect(ctx); err != nil && ctx.Err() == nil {
				m.recordError(err)
				m.logger.Error("NATS mirror could not connect", "url", m.config.URL, "error", err)
			}
		}()
	}

	m.wg.Add(1)
	go m.forward(ctx, m.sub)

	m.logger.Info("NATS mirror started", "url", m.config.URL, "prefix", m.config.SubjectPrefix)
	return nil
}

func (m *Mirror) forward(ctx context.Context, sub *bus.Subscription) {
	defer m.wg.Done()
	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			return
		}
		if n := sub.TakeDropped(); n > 0 {
			m.logger.Warn("NATS mirror lagging, events dropped", "dropped", n)
		}
		m.mirror(ctx, ev)
	}
}

func (m *Mirror) mirror(ctx context.Context, ev message.Event) {
	data, err := json.Marshal(ev.Payload())
	if err != nil {
		m.recordError(err)
		return
	}

	subject := m.Subject(ev)
	if err := m.publisher.Publish(ctx, subject, data); err != nil {
		m.recordError(err)
		// one line per failure would flood the log during an outage
		if m.failed.Load()%100 == 1 {
			m.logger.Warn("NATS publish failed", "subject", subject, "failed_total", m.failed.Load(), "error", err)
		}
		return
	}

	m.published.Add(1)
	m.bytes.Add(int64(len(data)))
	m.metrics.RecordNATSPublish(ev.Kind.String())
	m.lastActivity.Store(time.Now())
	m.logger.Debug("Event mirrored", "subject", subject, "bytes", len(data))
}

func (m *Mirror) recordError(err error) {
	m.failed.Add(1)
	m.lastError.Store(err.Error())
}

// Stop unsubscribes from the bus and closes an owned connection
func (m *Mirror) Stop(timeout time.Duration) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if !m.running.Load() {
		return nil
	}

	m.cancel()
	m.sub.Close()

	waitCh := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("%w: stop timeout after %v", errors.ErrShuttingDown, timeout),
			"NATSMirror", "Stop", "wait for goroutines")
	}
	m.running.Store(false)

	var closeErr error
	if conn, ok := m.publisher.(Connector); ok {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		closeErr = conn.Close(ctx)
	}

	m.logger.Info("NATS mirror stopped", "published", m.published.Load(), "failed", m.failed.Load())
	return closeErr
}

// Meta returns component metadata
func (m *Mirror) Meta() component.Metadata {
	return component.Metadata{
		Name:        m.name,
		Type:        "output",
		Description: fmt.Sprintf("NATS mirror to %s (%s.>)", m.config.URL, m.config.SubjectPrefix),
		Version:     "1.0.0",
	}
}

// Health returns current health status. The mirror is best effort, so an
// unreachable broker does not make it unhealthy; failures show up in
// ErrorCount and LastError.
func (m *Mirror) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:    m.running.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(m.failed.Load()),
		LastError:  m.lastError.Load().(string),
		Uptime:     time.Since(m.startTime),
	}
}

// Connected reports whether the underlying connection is up. Publishers
// without a lifecycle are always considered connected.
func (m *Mirror) Connected() bool {
	if conn, ok := m.publisher.(Connector); ok {
		return conn.IsHealthy()
	}
	return m.publisher != nil
}

// DataFlow returns current data flow metrics
func (m *Mirror) DataFlow() component.FlowMetrics {
	last, _ := m.lastActivity.Load().(time.Time)
	return component.Rates(m.published.Load(), m.bytes.Load(), m.failed.Load(), time.Since(m.startTime), last)
}

// Published returns the number of events mirrored so far
func (m *Mirror) Published() int64 {
	return m.published.Load()
}
