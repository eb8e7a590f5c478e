package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ianfajar-codes/SPS-Enose-Project/bus"
	"github.com/ianfajar-codes/SPS-Enose-Project/component"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
	"github.com/ianfajar-codes/SPS-Enose-Project/output/relay"
	"github.com/ianfajar-codes/SPS-Enose-Project/pkg/retry"
)

const transport = "websocket"

// Deps holds runtime dependencies for the WebSocket output.
type Deps struct {
	Name            string
	Config          Config
	Bus             *bus.Bus
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
	RetryConfig     *retry.Config // nil uses retry.Bind()
}

// Output serves the observer stream to WebSocket clients.
type Output struct {
	name     string
	config   Config
	bus      *bus.Bus
	metrics  *metric.Metrics
	logger   *slog.Logger
	retry    retry.Config
	upgrader websocket.Upgrader

	mu        sync.RWMutex
	server    *http.Server
	ln        net.Listener
	baseCtx   context.Context
	cancel    context.CancelFunc
	clients   map[string]*messageConn
	running   atomic.Bool
	wg        sync.WaitGroup
	startTime time.Time

	sessionsTotal atomic.Int64
	events        atomic.Int64
	errCount      atomic.Int64
	lastActivity  atomic.Value // time.Time
	lastError     atomic.Value // string
}

var (
	_ component.Discoverable       = (*Output)(nil)
	_ component.LifecycleComponent = (*Output)(nil)
)

// NewOutput creates a WebSocket output.
func NewOutput(deps Deps) *Output {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "websocket-output"
	}
	rc := retry.Bind()
	if deps.RetryConfig != nil {
		rc = *deps.RetryConfig
	}

	o := &Output{
		name:    name,
		config:  deps.Config,
		bus:     deps.Bus,
		metrics: deps.MetricsRegistry.CoreMetrics(),
		logger:  logger.With("component", name),
		retry:   rc,
		upgrader: websocket.Upgrader{
			// dashboards are served from anywhere on the lab network
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:   make(map[string]*messageConn),
		startTime: time.Now(),
	}
	o.lastActivity.Store(time.Time{})
	o.lastError.Store("")
	return o
}

// Meta returns the component metadata
func (o *Output) Meta() component.Metadata {
	return component.Metadata{
		Name:        o.name,
		Type:        "output",
		Description: fmt.Sprintf("WebSocket observers on %s%s", o.config.Addr, o.config.Path),
		Version:     "1.0.0",
	}
}

// Health returns the current health status of the component
func (o *Output) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:    o.running.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(o.errCount.Load()),
		LastError:  o.lastError.Load().(string),
		Uptime:     time.Since(o.startTime),
	}
}

// DataFlow returns the current data flow metrics
func (o *Output) DataFlow() component.FlowMetrics {
	last, _ := o.lastActivity.Load().(time.Time)
	return component.Rates(o.events.Load(), 0, o.errCount.Load(), time.Since(o.startTime), last)
}

// Initialize validates the configuration
func (o *Output) Initialize() error {
	if o.bus == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: nil bus", errors.ErrMissingConfig),
			"WebSocketOutput", "Initialize", "bus validation")
	}
	return o.config.Validate()
}

// Start binds the HTTP listener and begins serving upgrades.
func (o *Output) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "WebSocketOutput", "Start", "check state")
	}

	rc := o.retry
	rc.OnRetry = func(attempt int, err error, next time.Duration) {
		o.logger.Warn("Bind failed, retrying", "addr", o.config.Addr, "attempt", attempt, "next", next, "error", err)
	}
	var lc net.ListenConfig
	ln, err := retry.DoWithResult(ctx, rc, func() (net.Listener, error) {
		return lc.Listen(ctx, "tcp", o.config.Addr)
	})
	if err != nil {
		return errors.WrapFatal(fmt.Errorf("%w: %s: %w", errors.ErrBindFailed, o.config.Addr, err),
			"WebSocketOutput", "Start", "bind socket")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(o.config.Path, o.handleWebSocket)
	o.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	o.ln = ln
	o.baseCtx, o.cancel = context.WithCancel(ctx)
	o.startTime = time.Now()
	o.running.Store(true)

	server := o.server
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			o.recordError(err)
			o.logger.Error("WebSocket server failed", "error", err)
		}
	}()

	context.AfterFunc(o.baseCtx, o.closeClients)
	o.logger.Info("WebSocket output started", "addr", ln.Addr().String(), "path", o.config.Path)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (o *Output) Addr() net.Addr {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.ln == nil {
		return nil
	}
	return o.ln.Addr()
}

// ActiveSessions returns the number of connected WebSocket observers.
func (o *Output) ActiveSessions() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.clients)
}

func (o *Output) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		o.recordError(err)
		return
	}

	sub := o.bus.Subscribe()
	id := uuid.NewString()
	conn := newMessageConn(ws, o.config.WriteTimeout)

	ctx, ok := o.track(id, conn)
	if !ok {
		sub.Close()
		_ = conn.Close()
		return
	}
	defer o.wg.Done()
	defer o.untrack(id)

	logger := o.logger.With("remote_addr", r.RemoteAddr)
	o.sessionsTotal.Add(1)
	o.metrics.SessionOpened(transport)
	defer o.metrics.SessionClosed(transport)
	logger.Info("WebSocket observer connected", "session_id", id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if o.config.PingInterval > 0 {
		go o.keepalive(ctx, conn, cancel)
	}

	session := relay.NewSession(relay.SessionConfig{
		ID:             id,
		Conn:           &activityConn{messageConn: conn, o: o},
		Subscription:   sub,
		Publisher:      o.bus,
		AcceptCommands: o.config.AcceptCommands,
		Transport:      transport,
		Metrics:        o.metrics,
		Logger:         logger,
	})
	err = session.Run(ctx)

	_, events, commands := session.Stats()
	o.events.Add(events)
	if err != nil {
		o.recordError(err)
		logger.Warn("WebSocket session ended with error", "session_id", id, "error", err)
		return
	}
	logger.Info("WebSocket observer disconnected", "session_id", id,
		"events", events, "commands", commands, "dropped", sub.Dropped())
}

func (o *Output) keepalive(ctx context.Context, conn *messageConn, cancel context.CancelFunc) {
	ticker := time.NewTicker(o.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(o.config.WriteTimeout + time.Second); err != nil {
				cancel()
				return
			}
		}
	}
}

type activityConn struct {
	*messageConn
	o *Output
}

func (c *activityConn) Write(p []byte) (int, error) {
	n, err := c.messageConn.Write(p)
	if err == nil {
		c.o.lastActivity.Store(time.Now())
	}
	return n, err
}

// track registers a client and reserves its WaitGroup slot. It fails once
// the output is stopping.
func (o *Output) track(id string, conn *messageConn) (context.Context, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running.Load() {
		return nil, false
	}
	o.clients[id] = conn
	o.wg.Add(1)
	return o.baseCtx, true
}

func (o *Output) untrack(id string) {
	o.mu.Lock()
	delete(o.clients, id)
	o.mu.Unlock()
}

func (o *Output) recordError(err error) {
	o.errCount.Add(1)
	o.lastError.Store(err.Error())
}

func (o *Output) closeClients() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running.Store(false)
	for _, conn := range o.clients {
		_ = conn.Close()
	}
}

// Stop shuts down the HTTP server, closes every client and waits for the
// sessions to finish.
func (o *Output) Stop(timeout time.Duration) error {
	o.mu.RLock()
	server, cancel := o.server, o.cancel
	o.mu.RUnlock()
	if server == nil {
		return nil
	}

	cancel()
	o.closeClients()

	ctx, done := context.WithTimeout(context.Background(), timeout)
	defer done()
	// hijacked connections are not tracked by Shutdown
	if err := server.Shutdown(ctx); err != nil {
		return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrShuttingDown, err),
			"WebSocketOutput", "Stop", "shutdown http server")
	}

	finished := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return errors.WrapTransient(fmt.Errorf("%w: stop timeout after %v", errors.ErrShuttingDown, timeout),
			"WebSocketOutput", "Stop", "wait for sessions")
	}

	o.mu.Lock()
	o.server = nil
	o.ln = nil
	o.mu.Unlock()
	o.logger.Info("WebSocket output stopped", "sessions_total", o.sessionsTotal.Load())
	return nil
}
