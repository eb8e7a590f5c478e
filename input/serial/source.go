package serial

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	goserial "go.bug.st/serial"

	"github.com/ianfajar-codes/SPS-Enose-Project/component"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/input/device"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
	"github.com/ianfajar-codes/SPS-Enose-Project/pkg/retry"
	"github.com/ianfajar-codes/SPS-Enose-Project/processor/normalizer"
)

const role = "serial"

// Config holds the serial port settings.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
	Baud    int    `yaml:"baud"`
	Window  int    `yaml:"window"`
}

// DefaultConfig returns the default serial settings.
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Port:    "/dev/ttyUSB0",
		Baud:    115200,
		Window:  normalizer.DefaultWindow,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: serial port is empty", errors.ErrMissingConfig),
			"SerialConfig", "Validate", "check port")
	}
	if c.Baud <= 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: baud must be positive, got %d", errors.ErrInvalidConfig, c.Baud),
			"SerialConfig", "Validate", "check baud")
	}
	if c.Window < 1 {
		return errors.WrapInvalid(fmt.Errorf("%w: window must be >= 1, got %d", errors.ErrInvalidConfig, c.Window),
			"SerialConfig", "Validate", "check window")
	}
	return nil
}

// OpenFunc opens a port for reading.
type OpenFunc func(port string, baud int) (io.ReadCloser, error)

// OpenPort opens a real serial port in 8N1 mode.
func OpenPort(port string, baud int) (io.ReadCloser, error) {
	return goserial.Open(port, &goserial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	})
}

// Deps holds runtime dependencies for the serial source.
type Deps struct {
	Name            string
	Config          Config
	Publisher       device.Publisher
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
	Open            OpenFunc      // nil uses OpenPort
	RetryConfig     *retry.Config // nil uses retry.Reconnect()
}

// Source feeds device frames from a serial port into the bus.
type Source struct {
	name      string
	config    Config
	publisher device.Publisher
	metrics   *metric.Metrics
	logger    *slog.Logger
	open      OpenFunc
	retry     retry.Config

	lifecycleMu sync.Mutex
	running     atomic.Bool
	connected   atomic.Bool
	cancel      context.CancelFunc
	done        chan struct{}
	startTime   time.Time

	sessions     atomic.Int64
	lines        atomic.Int64
	errCount     atomic.Int64
	lastActivity atomic.Value // time.Time
	lastError    atomic.Value // string
}

var (
	_ component.Discoverable       = (*Source)(nil)
	_ component.LifecycleComponent = (*Source)(nil)
)

// NewSource creates a serial source.
func NewSource(deps Deps) *Source {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "serial-source"
	}
	open := deps.Open
	if open == nil {
		open = OpenPort
	}
	rc := retry.Reconnect()
	if deps.RetryConfig != nil {
		rc = *deps.RetryConfig
	}

	s := &Source{
		name:      name,
		config:    deps.Config,
		publisher: deps.Publisher,
		metrics:   deps.MetricsRegistry.CoreMetrics(),
		logger:    logger.With("component", name, "port", deps.Config.Port),
		open:      open,
		retry:     rc,
		startTime: time.Now(),
	}
	s.lastActivity.Store(time.Time{})
	s.lastError.Store("")
	return s
}

// Meta returns the component metadata
func (s *Source) Meta() component.Metadata {
	return component.Metadata{
		Name:        s.name,
		Type:        "input",
		Description: fmt.Sprintf("Device frames from serial port %s at %d baud", s.config.Port, s.config.Baud),
		Version:     "1.0.0",
	}
}

// Health returns the current health status of the component. A source
// waiting for its port to reappear is unhealthy.
func (s *Source) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:    s.running.Load() && s.connected.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(s.errCount.Load()),
		LastError:  s.lastError.Load().(string),
		Uptime:     time.Since(s.startTime),
	}
}

// DataFlow returns the current data flow metrics
func (s *Source) DataFlow() component.FlowMetrics {
	last, _ := s.lastActivity.Load().(time.Time)
	return component.Rates(s.lines.Load(), 0, s.errCount.Load(), time.Since(s.startTime), last)
}

// Initialize validates the configuration
func (s *Source) Initialize() error {
	if s.publisher == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: nil publisher", errors.ErrMissingConfig),
			"SerialSource", "Initialize", "publisher validation")
	}
	return s.config.Validate()
}

// Start begins reading in the background. A missing port is not fatal; the
// source keeps retrying until stopped.
func (s *Source) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.running.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "SerialSource", "Start", "check state")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.startTime = time.Now()
	s.running.Store(true)

	go s.run(ctx)
	s.logger.Info("Serial source started", "baud", s.config.Baud)
	return nil
}

func (s *Source) run(ctx context.Context) {
	defer close(s.done)

	rc := s.retry
	rc.OnRetry = func(attempt int, err error, next time.Duration) {
		s.recordError(err)
		if attempt == 1 || attempt%10 == 0 {
			s.logger.Warn("Serial port unavailable, retrying", "attempt", attempt, "next", next, "error", err)
		}
	}

	for ctx.Err() == nil {
		port, err := retry.DoWithResult(ctx, rc, func() (io.ReadCloser, error) {
			return s.open(s.config.Port, s.config.Baud)
		})
		if err != nil {
			if ctx.Err() == nil {
				s.recordError(err)
				s.logger.Error("Giving up on serial port", "error", err)
			}
			return
		}

		s.serve(ctx, port)

		// a port that opens but fails at once must not spin
		select {
		case <-ctx.Done():
		case <-time.After(rc.Delay(1)):
		}
	}
}

func (s *Source) serve(ctx context.Context, port io.ReadCloser) {
	id := uuid.NewString()
	session, err := device.NewSession(device.SessionConfig{
		ID:        id,
		Source:    s.config.Port,
		Window:    s.config.Window,
		Publisher: s.publisher,
		Metrics:   s.metrics,
		Logger:    s.logger,
	})
	if err != nil {
		_ = port.Close()
		s.recordError(err)
		s.logger.Error("Failed to create ingestion session", "error", err)
		return
	}

	// closing the port is the only way to interrupt a blocked read
	stop := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer func() {
		if stop() {
			_ = port.Close()
		}
	}()

	s.sessions.Add(1)
	s.connected.Store(true)
	defer s.connected.Store(false)
	s.metrics.SessionOpened(role)
	defer s.metrics.SessionClosed(role)
	s.logger.Info("Serial device opened", "session_id", id)

	err = session.Run(ctx, &activityReader{r: port, s: s})

	stats := session.Stats()
	s.lines.Add(stats.Lines)
	if err != nil {
		s.recordError(err)
		s.logger.Warn("Serial session ended with error", "session_id", id, "error", err, "lines", stats.Lines)
		return
	}
	s.logger.Info("Serial device closed", "session_id", id,
		"lines", stats.Lines, "readings", stats.Readings, "statuses", stats.Statuses,
		"malformed", stats.Malformed, "rejected", stats.Rejected, "unknown", stats.Unknown)
}

type activityReader struct {
	r io.Reader
	s *Source
}

func (r *activityReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.s.lastActivity.Store(time.Now())
	}
	return n, err
}

func (s *Source) recordError(err error) {
	s.errCount.Add(1)
	s.lastError.Store(err.Error())
}

// Sessions returns how many times the port has been opened.
func (s *Source) Sessions() int64 {
	return s.sessions.Load()
}

// Stop closes the port and waits for the reader to exit.
func (s *Source) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.running.Load() {
		return nil
	}
	s.cancel()

	select {
	case <-s.done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("%w: stop timeout after %v", errors.ErrShuttingDown, timeout),
			"SerialSource", "Stop", "wait for reader")
	}
	s.running.Store(false)
	s.logger.Info("Serial source stopped", "sessions", s.sessions.Load())
	return nil
}
