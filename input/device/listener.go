package device

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ianfajar-codes/SPS-Enose-Project/component"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
	"github.com/ianfajar-codes/SPS-Enose-Project/pkg/retry"
	"github.com/ianfajar-codes/SPS-Enose-Project/processor/normalizer"
)

const role = "device"

// Config holds the device ingress settings.
type Config struct {
	// Addr is the TCP listen address for the device.
	Addr string `yaml:"addr"`
	// Window is the moving-average window per channel.
	Window int `yaml:"window"`
}

// DefaultConfig returns the default ingress settings.
func DefaultConfig() Config {
	return Config{
		Addr:   "0.0.0.0:8081",
		Window: normalizer.DefaultWindow,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: device addr is empty", errors.ErrMissingConfig),
			"DeviceConfig", "Validate", "check addr")
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: device addr %q: %w", errors.ErrInvalidConfig, c.Addr, err),
			"DeviceConfig", "Validate", "check addr")
	}
	if c.Window < 1 {
		return errors.WrapInvalid(fmt.Errorf("%w: window must be >= 1, got %d", errors.ErrInvalidConfig, c.Window),
			"DeviceConfig", "Validate", "check window")
	}
	return nil
}

// ListenerDeps holds runtime dependencies for the device listener.
type ListenerDeps struct {
	Name            string
	Config          Config
	Publisher       Publisher
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
	RetryConfig     *retry.Config // nil uses retry.Bind()
}

// Listener accepts device connections and runs one Session per connection.
type Listener struct {
	name      string
	config    Config
	publisher Publisher
	metrics   *metric.Metrics
	logger    *slog.Logger
	retry     retry.Config
	acceptLog *rate.Limiter

	// Lifecycle management
	mu        sync.RWMutex
	ln        net.Listener
	conns     map[string]net.Conn
	running   atomic.Bool
	wg        sync.WaitGroup
	done      chan struct{}
	startTime time.Time

	// Counters
	sessionsTotal atomic.Int64
	lines         atomic.Int64
	bytes         atomic.Int64
	errCount      atomic.Int64
	lastActivity  atomic.Value // time.Time
	lastError     atomic.Value // string
}

var (
	_ component.Discoverable       = (*Listener)(nil)
	_ component.LifecycleComponent = (*Listener)(nil)
)

// NewListener creates a device listener.
func NewListener(deps ListenerDeps) *Listener {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "device-listener"
	}
	rc := retry.Bind()
	if deps.RetryConfig != nil {
		rc = *deps.RetryConfig
	}

	l := &Listener{
		name:      name,
		config:    deps.Config,
		publisher: deps.Publisher,
		metrics:   deps.MetricsRegistry.CoreMetrics(),
		logger:    logger.With("component", name),
		retry:     rc,
		acceptLog: rate.NewLimiter(rate.Every(time.Second), 5),
		conns:     make(map[string]net.Conn),
		startTime: time.Now(),
	}
	l.lastActivity.Store(time.Time{})
	l.lastError.Store("")
	return l
}

// Meta returns the component metadata
func (l *Listener) Meta() component.Metadata {
	return component.Metadata{
		Name:        l.name,
		Type:        "input",
		Description: fmt.Sprintf("Device ingress on %s, smoothing window %d", l.config.Addr, l.config.Window),
		Version:     "1.0.0",
	}
}

// Health returns the current health status of the component
func (l *Listener) Health() component.HealthStatus {
	l.mu.RLock()
	bound := l.ln != nil
	l.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    l.running.Load() && bound,
		LastCheck:  time.Now(),
		ErrorCount: int(l.errCount.Load()),
		LastError:  l.lastError.Load().(string),
		Uptime:     time.Since(l.startTime),
	}
}

// DataFlow returns the current data flow metrics
func (l *Listener) DataFlow() component.FlowMetrics {
	last, _ := l.lastActivity.Load().(time.Time)
	return component.Rates(l.lines.Load(), l.bytes.Load(), l.errCount.Load(), time.Since(l.startTime), last)
}

// Initialize validates the configuration
func (l *Listener) Initialize() error {
	if l.publisher == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: nil publisher", errors.ErrMissingConfig),
			"DeviceListener", "Initialize", "publisher validation")
	}
	return l.config.Validate()
}

// Start binds the listen socket, retrying briefly, and begins accepting.
// A bind that still fails is fatal.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "DeviceListener", "Start", "check state")
	}

	rc := l.retry
	rc.OnRetry = func(attempt int, err error, next time.Duration) {
		l.logger.Warn("Bind failed, retrying", "addr", l.config.Addr, "attempt", attempt, "next", next, "error", err)
	}

	var lc net.ListenConfig
	ln, err := retry.DoWithResult(ctx, rc, func() (net.Listener, error) {
		return lc.Listen(ctx, "tcp", l.config.Addr)
	})
	if err != nil {
		return errors.WrapFatal(fmt.Errorf("%w: %s: %w", errors.ErrBindFailed, l.config.Addr, err),
			"DeviceListener", "Start", "bind socket")
	}

	l.ln = ln
	l.done = make(chan struct{})
	l.startTime = time.Now()
	l.running.Store(true)
	l.logger.Info("Device listener started", "addr", ln.Addr().String())

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(l.done)
		l.acceptLoop(ctx, ln)
	}()

	// cancelling ctx stops accepting and ends open sessions
	stop := context.AfterFunc(ctx, func() { l.closeAll() })
	go func(done <-chan struct{}) {
		<-done
		stop()
	}(l.done)

	return nil
}

// Addr returns the bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *Listener) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !l.running.Load() || ctx.Err() != nil || errors.IsClosed(err) {
				return
			}
			l.recordError(err)
			if l.acceptLog.Allow() {
				l.logger.Error("Accept failed", "error", err)
			}
			// avoid spinning on persistent errors such as EMFILE
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		id := uuid.NewString()
		if !l.track(id, conn) {
			_ = conn.Close()
			return
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.untrack(id)
			l.serve(ctx, id, conn)
		}()
	}
}

func (l *Listener) serve(ctx context.Context, id string, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	logger := l.logger.With("remote_addr", remote)

	session, err := NewSession(SessionConfig{
		ID:        id,
		Source:    remote,
		Window:    l.config.Window,
		Publisher: l.publisher,
		Metrics:   l.metrics,
		Logger:    logger,
	})
	if err != nil {
		l.recordError(err)
		logger.Error("Failed to create ingestion session", "error", err)
		return
	}

	l.sessionsTotal.Add(1)
	l.metrics.SessionOpened(role)
	defer l.metrics.SessionClosed(role)
	logger.Info("Device connected", "session_id", id)

	err = session.Run(ctx, &activityReader{conn: conn, l: l})

	stats := session.Stats()
	l.lines.Add(stats.Lines)
	if err != nil {
		l.recordError(err)
		logger.Warn("Device session ended with error", "session_id", id, "error", err,
			"lines", stats.Lines, "readings", stats.Readings)
		return
	}
	logger.Info("Device disconnected", "session_id", id,
		"lines", stats.Lines, "readings", stats.Readings, "statuses", stats.Statuses,
		"malformed", stats.Malformed, "rejected", stats.Rejected, "unknown", stats.Unknown)
}

// activityReader tracks bytes and last activity for DataFlow.
type activityReader struct {
	conn net.Conn
	l    *Listener
}

func (r *activityReader) Read(p []byte) (int, error) {
	n, err := r.conn.Read(p)
	if n > 0 {
		r.l.bytes.Add(int64(n))
		r.l.lastActivity.Store(time.Now())
	}
	return n, err
}

func (l *Listener) track(id string, conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running.Load() {
		return false
	}
	l.conns[id] = conn
	return true
}

func (l *Listener) untrack(id string) {
	l.mu.Lock()
	conn, ok := l.conns[id]
	delete(l.conns, id)
	l.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

// ActiveSessions returns the number of connected devices.
func (l *Listener) ActiveSessions() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.conns)
}

func (l *Listener) recordError(err error) {
	l.errCount.Add(1)
	l.lastError.Store(err.Error())
}

// closeAll stops accepting and closes every open connection.
func (l *Listener) closeAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.running.Store(false)
	if l.ln != nil {
		_ = l.ln.Close()
	}
	for _, conn := range l.conns {
		_ = conn.Close()
	}
}

// Stop closes the listener and all device connections, then waits for the
// sessions to finish.
func (l *Listener) Stop(timeout time.Duration) error {
	l.mu.RLock()
	started := l.done != nil
	l.mu.RUnlock()
	if !started {
		return nil
	}

	l.closeAll()

	finished := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("%w: stop timeout after %v", errors.ErrShuttingDown, timeout),
			"DeviceListener", "Stop", "wait for sessions")
	}

	l.mu.Lock()
	l.ln = nil
	l.mu.Unlock()
	l.logger.Info("Device listener stopped", "sessions_total", l.sessionsTotal.Load())
	return nil
}
