package relay

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

	"github.com/ianfajar-codes/SPS-Enose-Project/bus"
	"github.com/ianfajar-codes/SPS-Enose-Project/component"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
	"github.com/ianfajar-codes/SPS-Enose-Project/pkg/retry"
)

const role = "observer"

// ServerDeps holds runtime dependencies for the relay server.
type ServerDeps struct {
	Name            string
	Config          Config
	Bus             *bus.Bus
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
	RetryConfig     *retry.Config // nil uses retry.Bind()
}

// Server accepts observer connections and runs one Session per connection,
// all sharing one bus.
type Server struct {
	name      string
	config    Config
	bus       *bus.Bus
	metrics   *metric.Metrics
	logger    *slog.Logger
	retry     retry.Config
	acceptLog *rate.Limiter

	mu        sync.RWMutex
	ln        net.Listener
	cancel    context.CancelFunc
	conns     map[string]net.Conn
	running   atomic.Bool
	started   bool
	wg        sync.WaitGroup
	startTime time.Time

	sessionsTotal atomic.Int64
	events        atomic.Int64
	bytes         atomic.Int64
	errCount      atomic.Int64
	lastActivity  atomic.Value // time.Time
	lastError     atomic.Value // string
}

var (
	_ component.Discoverable       = (*Server)(nil)
	_ component.LifecycleComponent = (*Server)(nil)
)

// NewServer creates a relay server.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "relay-server"
	}
	rc := retry.Bind()
	if deps.RetryConfig != nil {
		rc = *deps.RetryConfig
	}

	s := &Server{
		name:      name,
		config:    deps.Config,
		bus:       deps.Bus,
		metrics:   deps.MetricsRegistry.CoreMetrics(),
		logger:    logger.With("component", name),
		retry:     rc,
		acceptLog: rate.NewLimiter(rate.Every(time.Second), 5),
		conns:     make(map[string]net.Conn),
		startTime: time.Now(),
	}
	s.lastActivity.Store(time.Time{})
	s.lastError.Store("")
	return s
}

// Meta returns the component metadata
func (s *Server) Meta() component.Metadata {
	return component.Metadata{
		Name:        s.name,
		Type:        "output",
		Description: fmt.Sprintf("Observer relay on %s (commands: %t)", s.config.Addr, s.config.AcceptCommands),
		Version:     "1.0.0",
	}
}

// Health returns the current health status of the component
func (s *Server) Health() component.HealthStatus {
	s.mu.RLock()
	bound := s.ln != nil
	s.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    s.running.Load() && bound,
		LastCheck:  time.Now(),
		ErrorCount: int(s.errCount.Load()),
		LastError:  s.lastError.Load().(string),
		Uptime:     time.Since(s.startTime),
	}
}

// DataFlow returns the current data flow metrics
func (s *Server) DataFlow() component.FlowMetrics {
	last, _ := s.lastActivity.Load().(time.Time)
	return component.Rates(s.events.Load(), s.bytes.Load(), s.errCount.Load(), time.Since(s.startTime), last)
}

// Initialize validates the configuration
func (s *Server) Initialize() error {
	if s.bus == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: nil bus", errors.ErrMissingConfig),
			"RelayServer", "Initialize", "bus validation")
	}
	return s.config.Validate()
}

// Start binds the observer socket and begins accepting. A bind that still
// fails after retrying is fatal.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "RelayServer", "Start", "check state")
	}

	rc := s.retry
	rc.OnRetry = func(attempt int, err error, next time.Duration) {
		s.logger.Warn("Bind failed, retrying", "addr", s.config.Addr, "attempt", attempt, "next", next, "error", err)
	}

	var lc net.ListenConfig
	ln, err := retry.DoWithResult(ctx, rc, func() (net.Listener, error) {
		return lc.Listen(ctx, "tcp", s.config.Addr)
	})
	if err != nil {
		return errors.WrapFatal(fmt.Errorf("%w: %s: %w", errors.ErrBindFailed, s.config.Addr, err),
			"RelayServer", "Start", "bind socket")
	}

	// sessions block on the bus, not the socket, so Stop cancels them
	ctx, s.cancel = context.WithCancel(ctx)
	s.ln = ln
	s.started = true
	s.startTime = time.Now()
	s.running.Store(true)
	s.logger.Info("Relay server started", "addr", ln.Addr().String(), "accept_commands", s.config.AcceptCommands)

	done := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		s.acceptLoop(ctx, ln)
	}()

	stop := context.AfterFunc(ctx, s.closeAll)
	go func() {
		<-done
		stop()
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || ctx.Err() != nil || errors.IsClosed(err) {
				return
			}
			s.recordError(err)
			if s.acceptLog.Allow() {
				s.logger.Error("Accept failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		// subscribe before anything else so no later event is missed
		sub := s.bus.Subscribe()
		id := uuid.NewString()
		if !s.track(id, conn) {
			sub.Close()
			_ = conn.Close()
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(id)
			s.serve(ctx, id, conn, sub)
		}()
	}
}

func (s *Server) serve(ctx context.Context, id string, conn net.Conn, sub *bus.Subscription) {
	remote := conn.RemoteAddr().String()
	logger := s.logger.With("remote_addr", remote)

	s.sessionsTotal.Add(1)
	s.metrics.SessionOpened(role)
	defer s.metrics.SessionClosed(role)
	logger.Info("Observer connected", "session_id", id)

	session := NewSession(SessionConfig{
		ID:             id,
		Conn:           &activityConn{Conn: conn, s: s},
		Subscription:   sub,
		Publisher:      s.bus,
		AcceptCommands: s.config.AcceptCommands,
		Metrics:        s.metrics,
		Logger:         logger,
	})
	err := session.Run(ctx)

	written, events, commands := session.Stats()
	s.events.Add(events)
	if err != nil {
		s.recordError(err)
		logger.Warn("Observer session ended with error", "session_id", id, "error", err)
		return
	}
	queue := sub.Stats()
	logger.Info("Observer disconnected", "session_id", id,
		"events", events, "bytes", written, "commands", commands,
		"dropped", queue.Drops, "drop_rate", queue.DropRate, "max_queued", queue.MaxSize)
}

// activityConn tracks bytes written and last activity for DataFlow.
type activityConn struct {
	net.Conn
	s *Server
}

func (c *activityConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	if n > 0 {
		c.s.bytes.Add(int64(n))
		c.s.lastActivity.Store(time.Now())
	}
	return n, err
}

func (s *Server) track(id string, conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return false
	}
	s.conns[id] = conn
	return true
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

// ActiveSessions returns the number of connected observers.
func (s *Server) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Server) recordError(err error) {
	s.errCount.Add(1)
	s.lastError.Store(err.Error())
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running.Store(false)
	if s.cancel != nil {
		s.cancel()
	}
	if s.ln != nil {
		_ = s.ln.Close()
	}
	for _, conn := range s.conns {
		_ = conn.Close()
	}
}

// Stop closes the listener and every observer connection, then waits for
// the sessions to finish.
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil
	}

	s.closeAll()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("%w: stop timeout after %v", errors.ErrShuttingDown, timeout),
			"RelayServer", "Stop", "wait for sessions")
	}

	s.mu.Lock()
	s.ln = nil
	s.mu.Unlock()
	s.logger.Info("Relay server stopped", "sessions_total", s.sessionsTotal.Load())
	return nil
}
