package device

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
	"github.com/ianfajar-codes/SPS-Enose-Project/processor/normalizer"
	"github.com/ianfajar-codes/SPS-Enose-Project/processor/parser"
)

// Publisher accepts events for broadcast. *bus.Bus implements it.
type Publisher interface {
	Publish(message.Event)
}

// LineResult is the outcome of handling one line.
type LineResult int

const (
	// LineBlank was empty after trimming and ignored.
	LineBlank LineResult = iota
	// LinePublished produced a bus event.
	LinePublished
	// LineMalformed failed to parse as a frame.
	LineMalformed
	// LineRejected was a data frame with missing or invalid fields.
	LineRejected
	// LineUnknown had an unrecognized discriminator.
	LineUnknown
)

// String returns the metric label of the result.
func (r LineResult) String() string {
	switch r {
	case LineBlank:
		return "blank"
	case LinePublished:
		return "published"
	case LineMalformed:
		return "malformed"
	case LineRejected:
		return "invalid_reading"
	case LineUnknown:
		return "unknown_type"
	default:
		return "unknown"
	}
}

// SessionStats counts line outcomes of one session.
type SessionStats struct {
	Lines     int64
	Readings  int64
	Statuses  int64
	Malformed int64
	Rejected  int64
	Unknown   int64
	Bytes     int64
}

// Session is one ingestion session. It is driven by a single goroutine.
type Session struct {
	id         string
	source     string
	normalizer *normalizer.Normalizer
	publisher  Publisher
	metrics    *metric.Metrics
	logger     *slog.Logger

	lines     atomic.Int64
	readings  atomic.Int64
	statuses  atomic.Int64
	malformed atomic.Int64
	rejected  atomic.Int64
	unknown   atomic.Int64
	bytes     atomic.Int64
	lastLine  atomic.Int64 // unix nanos
}

// SessionConfig configures a Session.
type SessionConfig struct {
	ID        string
	Source    string
	Window    int
	Publisher Publisher
	Metrics   *metric.Metrics
	Logger    *slog.Logger
}

// NewSession creates a session with fresh smoothing state.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Publisher == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "IngestionSession", "NewSession", "validate publisher")
	}
	n, err := normalizer.New(cfg.Window)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		id:         cfg.ID,
		source:     cfg.Source,
		normalizer: n,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		logger:     logger.With("session_id", cfg.ID, "source", cfg.Source),
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Run reads lines from r until EOF, a read error or ctx is done. A final
// line without a trailing newline is still handled. EOF and a closed
// connection end the session cleanly with nil; other read failures return
// an error matching errors.ErrConnection.
func (s *Session) Run(ctx context.Context, r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := reader.ReadString('\n')
		if line != "" {
			s.bytes.Add(int64(len(line)))
			s.HandleLine(line)
		}
		if err != nil {
			if errors.IsClosed(err) || ctx.Err() != nil {
				return nil
			}
			return errors.Connection(err, "IngestionSession", "Run", "read device line")
		}
	}
}

// HandleLine processes one line and reports what happened to it. Failures
// are logged and counted, never returned.
func (s *Session) HandleLine(line string) LineResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return LineBlank
	}
	s.lines.Add(1)
	s.lastLine.Store(time.Now().UnixNano())

	frame, err := parser.ParseFrame(line)
	if err != nil {
		s.malformed.Add(1)
		s.metrics.RecordRejection(LineMalformed.String())
		s.logger.Warn("Failed to parse device line", "error", err, "line", truncate(line, 120))
		return LineMalformed
	}
	s.metrics.RecordFrame(frame.Kind.String())

	switch {
	case frame.Kind == parser.KindData:
		reading, err := s.normalizer.NormalizeReading(frame)
		if err != nil {
			s.rejected.Add(1)
			s.metrics.RecordRejection(LineRejected.String())
			s.logger.Warn("Rejected sensor reading", "error", err)
			return LineRejected
		}
		s.publisher.Publish(message.NewReadingEvent(reading))
		s.readings.Add(1)
		s.logger.Info("Reading",
			"sample", reading.Sample,
			"co_m", reading.COM,
			"eth_m", reading.EthM,
			"voc_m", reading.VOCM,
			"no2", reading.NO2)
		return LinePublished

	case frame.Kind.IsStatus():
		ev := message.NewStatusEvent(normalizer.BuildStatusEvent(frame.Kind, frame))
		s.publisher.Publish(ev)
		s.statuses.Add(1)
		s.logStatus(ev.Status)
		return LinePublished

	default:
		s.unknown.Add(1)
		s.metrics.RecordRejection(LineUnknown.String())
		s.logger.Warn("Unknown frame type", "type", frame.Type)
		return LineUnknown
	}
}

func (s *Session) logStatus(st message.StatusEvent) {
	attrs := []any{"msg_type", st.MsgType}
	switch st.MsgType {
	case message.StatusKindStatus:
		attrs = append(attrs, "status", deref(st.Status), "message", deref(st.Message))
	case message.StatusKindMotor:
		attrs = append(attrs, "motor", deref(st.Motor))
		if st.Speed != nil {
			attrs = append(attrs, "speed", *st.Speed)
		}
	case message.StatusKindCalibProgress:
		if st.Current != nil && st.Total != nil {
			attrs = append(attrs, "current", *st.Current, "total", *st.Total)
		}
	}
	s.logger.Info("Device status", attrs...)
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		Lines:     s.lines.Load(),
		Readings:  s.readings.Load(),
		Statuses:  s.statuses.Load(),
		Malformed: s.malformed.Load(),
		Rejected:  s.rejected.Load(),
		Unknown:   s.unknown.Load(),
		Bytes:     s.bytes.Load(),
	}
}

// LastActivity returns when the last non-blank line arrived.
func (s *Session) LastActivity() time.Time {
	n := s.lastLine.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
