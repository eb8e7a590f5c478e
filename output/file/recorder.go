package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ianfajar-codes/SPS-Enose-Project/bus"
	"github.com/ianfajar-codes/SPS-Enose-Project/component"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
)

// Deps holds runtime dependencies for the recorder
type Deps struct {
	Name            string
	Config          Config
	Bus             *bus.Bus
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
}

// Recorder appends every reading on the bus to a CSV file
type Recorder struct {
	name    string
	config  Config
	bus     *bus.Bus
	metrics *metric.Metrics
	logger  *slog.Logger

	lifecycleMu sync.Mutex
	running     atomic.Bool
	cancel      context.CancelFunc
	sub         *bus.Subscription
	wg          sync.WaitGroup
	startTime   time.Time

	bufferMu sync.Mutex
	buffer   [][]string

	fileMu sync.Mutex
	file   *os.File

	rowsWritten  atomic.Int64
	bytesWritten atomic.Int64
	errCount     atomic.Int64
	lastActivity atomic.Value // time.Time
	lastError    atomic.Value // string
}

var (
	_ component.Discoverable       = (*Recorder)(nil)
	_ component.LifecycleComponent = (*Recorder)(nil)
)

// NewRecorder creates a CSV recorder
func NewRecorder(deps Deps) *Recorder {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "csv-recorder"
	}
	r := &Recorder{
		name:      name,
		config:    deps.Config,
		bus:       deps.Bus,
		metrics:   deps.MetricsRegistry.CoreMetrics(),
		logger:    logger.With("component", name),
		startTime: time.Now(),
	}
	r.lastActivity.Store(time.Time{})
	r.lastError.Store("")
	return r
}

// FormatRow renders a reading as CSV fields: timestamp, sample and the seven
// channels with two decimals.
func FormatRow(reading message.SensorReading) []string {
	row := make([]string, 0, 2+message.NumChannels)
	row = append(row, strconv.FormatUint(reading.Timestamp, 10), reading.Sample)
	for _, v := range reading.Values() {
		row = append(row, strconv.FormatFloat(v, 'f', 2, 64))
	}
	return row
}

// Initialize validates the configuration and creates the parent directory
func (r *Recorder) Initialize() error {
	if r.bus == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: nil bus", errors.ErrMissingConfig),
			"Recorder", "Initialize", "bus validation")
	}
	if err := r.config.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(r.config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapFatal(err, "Recorder", "Initialize", "create output directory")
		}
	}
	return nil
}

// Start opens the file and subscribes to the bus
func (r *Recorder) Start(ctx context.Context) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if r.running.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Recorder", "Start", "check running state")
	}

	flags := os.O_CREATE | os.O_WRONLY
	if r.config.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(r.config.Path, flags, 0o644)
	if err != nil {
		return errors.WrapFatal(err, "Recorder", "Start", "open output file")
	}

	r.fileMu.Lock()
	r.file = f
	r.fileMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.sub = r.bus.Subscribe()
	r.startTime = time.Now()
	r.running.Store(true)

	r.wg.Add(2)
	go r.consume(ctx, r.sub)
	go r.flushLoop(ctx)

	r.logger.Info("CSV recorder started",
		"path", r.config.Path,
		"append", r.config.Append,
		"buffer_size", r.config.BufferSize)
	return nil
}

func (r *Recorder) consume(ctx context.Context, sub *bus.Subscription) {
	defer r.wg.Done()
	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			return
		}
		if n := sub.TakeDropped(); n > 0 {
			r.logger.Warn("Recorder lagging, readings dropped", "dropped", n)
		}
		if ev.Kind != message.KindReading {
			continue
		}

		r.bufferMu.Lock()
		r.buffer = append(r.buffer, FormatRow(ev.Reading))
		shouldFlush := len(r.buffer) >= r.config.BufferSize
		r.bufferMu.Unlock()

		if shouldFlush {
			r.flush()
		}
	}
}

// flushLoop periodically flushes the buffer
func (r *Recorder) flushLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.flush()
		}
	}
}

// flush writes buffered rows to the file
func (r *Recorder) flush() {
	r.bufferMu.Lock()
	if len(r.buffer) == 0 {
		r.bufferMu.Unlock()
		return
	}
	rows := r.buffer
	r.buffer = nil
	r.bufferMu.Unlock()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		r.recordError(err)
		r.logger.Error("Failed to encode rows", "rows", len(rows), "error", err)
		return
	}

	r.fileMu.Lock()
	defer r.fileMu.Unlock()

	if r.file == nil {
		r.recordError(errors.ErrNotStarted)
		r.logger.Error("File handle is nil during flush", "rows_lost", len(rows))
		return
	}

	n, err := r.file.Write(buf.Bytes())
	r.bytesWritten.Add(int64(n))
	if err != nil {
		r.recordError(err)
		r.logger.Error("Failed to write rows", "path", r.config.Path, "error", err)
		return
	}

	r.rowsWritten.Add(int64(len(rows)))
	for range rows {
		r.metrics.RecordRow()
	}
	r.lastActivity.Store(time.Now())
	r.logger.Debug("Rows flushed", "rows", len(rows), "bytes", n)
}

func (r *Recorder) recordError(err error) {
	r.errCount.Add(1)
	r.lastError.Store(err.Error())
}

// Stop flushes pending rows and closes the file
func (r *Recorder) Stop(timeout time.Duration) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if !r.running.Load() {
		return nil
	}

	r.cancel()
	r.sub.Close()

	waitCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("%w: stop timeout after %v", errors.ErrShuttingDown, timeout),
			"Recorder", "Stop", "wait for goroutines")
	}

	r.flush()

	r.fileMu.Lock()
	var closeErr error
	if r.file != nil {
		closeErr = r.file.Close()
		r.file = nil
	}
	r.fileMu.Unlock()

	r.running.Store(false)
	r.logger.Info("CSV recorder stopped", "rows", r.rowsWritten.Load())
	if closeErr != nil {
		return errors.WrapTransient(closeErr, "Recorder", "Stop", "close output file")
	}
	return nil
}

// Meta returns component metadata
func (r *Recorder) Meta() component.Metadata {
	return component.Metadata{
		Name:        r.name,
		Type:        "output",
		Description: fmt.Sprintf("CSV recorder writing %s", r.config.Path),
		Version:     "1.0.0",
	}
}

// Health returns current health status
func (r *Recorder) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:    r.running.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(r.errCount.Load()),
		LastError:  r.lastError.Load().(string),
		Uptime:     time.Since(r.startTime),
	}
}

// DataFlow returns current data flow metrics
func (r *Recorder) DataFlow() component.FlowMetrics {
	last, _ := r.lastActivity.Load().(time.Time)
	return component.Rates(r.rowsWritten.Load(), r.bytesWritten.Load(), r.errCount.Load(),
		time.Since(r.startTime), last)
}

// RowsWritten returns the number of rows written so far
func (r *Recorder) RowsWritten() int64 {
	return r.rowsWritten.Load()
}
