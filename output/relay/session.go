package relay

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ianfajar-codes/SPS-Enose-Project/bus"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
)

// Publisher accepts events for broadcast.
type Publisher interface {
	Publish(message.Event)
}

// Session is one observer connection.
type Session struct {
	id             string
	conn           io.ReadWriteCloser
	sub            *bus.Subscription
	publisher      Publisher
	acceptCommands bool
	transport      string
	metrics        *metric.Metrics
	logger         *slog.Logger

	written  atomic.Int64
	events   atomic.Int64
	commands atomic.Int64
}

// SessionConfig configures a Session.
type SessionConfig struct {
	ID             string
	Conn           io.ReadWriteCloser
	Subscription   *bus.Subscription
	Publisher      Publisher
	AcceptCommands bool
	Transport      string // metric label, "tcp" when empty
	Metrics        *metric.Metrics
	Logger         *slog.Logger
}

// NewSession wraps an accepted connection. The subscription must already be
// open so no event published after accept is missed.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	transport := cfg.Transport
	if transport == "" {
		transport = "tcp"
	}
	return &Session{
		id:             cfg.ID,
		conn:           cfg.Conn,
		sub:            cfg.Subscription,
		publisher:      cfg.Publisher,
		acceptCommands: cfg.AcceptCommands,
		transport:      transport,
		metrics:        cfg.Metrics,
		logger:         logger.With("session_id", cfg.ID),
	}
}

// Run serves the connection until either direction ends or ctx is done. It
// always closes the connection and the subscription. A peer disconnect
// returns nil; other I/O failures match errors.ErrConnection.
func (s *Session) Run(ctx context.Context) error {
	defer s.sub.Close()
	defer s.conn.Close()

	g, gctx := errgroup.WithContext(ctx)

	// closing the socket unblocks the reader once the writer is gone
	stop := context.AfterFunc(gctx, func() {
		_ = s.conn.Close()
		s.sub.Close()
	})
	defer stop()

	g.Go(func() error { return s.writeLoop(gctx) })
	if s.acceptCommands {
		g.Go(func() error { return s.readLoop(gctx) })
	} else {
		g.Go(func() error { return s.drainLoop(gctx) })
	}

	err := g.Wait()
	if err == nil || errors.IsClosed(err) || ctx.Err() != nil {
		return nil
	}
	return err
}

// errSessionDone ends the errgroup when a direction finishes without error.
var errSessionDone = io.EOF

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		ev, err := s.sub.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if n := s.sub.TakeDropped(); n > 0 {
			s.logger.Warn("Observer lagging, events dropped", "dropped", n, "total_dropped", s.sub.Dropped())
		}
		if ev.Kind == message.KindCommand {
			continue
		}

		line, err := message.EncodeLine(ev)
		if err != nil {
			s.logger.Error("Failed to encode event", "kind", ev.Kind.String(), "error", err)
			continue
		}

		n, err := s.conn.Write(line)
		s.written.Add(int64(n))
		s.metrics.RecordWrite(n)
		if err != nil {
			if errors.IsClosed(err) {
				return errSessionDone
			}
			return errors.Connection(err, "ObserverSession", "writeLoop", "write event")
		}
		s.events.Add(1)
	}
}

func (s *Session) readLoop(ctx context.Context) error {
	reader := bufio.NewReader(s.conn)
	for {
		line, err := reader.ReadString('\n')
		if cmd := strings.TrimSpace(line); cmd != "" {
			s.commands.Add(1)
			s.metrics.RecordCommand(s.transport)
			s.logger.Info("Command received", "command", cmd)
			s.publisher.Publish(message.NewCommandEvent(cmd, s.id))
		}
		if err != nil {
			if errors.IsClosed(err) || ctx.Err() != nil {
				return errSessionDone
			}
			return errors.Connection(err, "ObserverSession", "readLoop", "read command")
		}
	}
}

// drainLoop discards inbound bytes so a peer hangup ends the session even
// while no events are flowing.
func (s *Session) drainLoop(ctx context.Context) error {
	_, err := io.Copy(io.Discard, s.conn)
	if err == nil || errors.IsClosed(err) || ctx.Err() != nil {
		return errSessionDone
	}
	return errors.Connection(err, "ObserverSession", "drainLoop", "read connection")
}

// Stats returns bytes written, events written and commands received.
func (s *Session) Stats() (written, events, commands int64) {
	return s.written.Load(), s.events.Load(), s.commands.Load()
}
