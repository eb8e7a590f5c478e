package websocket

import (
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// messageConn presents a WebSocket connection as a line stream. Each Write
// is sent as one text message; inbound text messages are read back as
// newline-terminated lines.
type messageConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	reader    io.Reader
	pendingNL bool
	closeOnce sync.Once
}

func newMessageConn(ws *websocket.Conn, writeTimeout time.Duration) *messageConn {
	return &messageConn{ws: ws, writeTimeout: writeTimeout}
}

func (c *messageConn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if c.pendingNL {
			c.pendingNL = false
			p[0] = '\n'
			return 1, nil
		}
		if c.reader == nil {
			mt, r, err := c.ws.NextReader()
			if err != nil {
				return 0, closedErr(err)
			}
			if mt != websocket.TextMessage {
				continue
			}
			c.reader = r
		}

		n, err := c.reader.Read(p)
		if err == io.EOF {
			c.reader = nil
			c.pendingNL = true
			if n > 0 {
				return n, nil
			}
			continue
		}
		if err != nil {
			return n, closedErr(err)
		}
		return n, nil
	}
}

func (c *messageConn) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, closedErr(err)
	}
	return len(p), nil
}

// Close sends a normal close frame and closes the socket. Safe to call more
// than once and concurrently with Read and Write.
func (c *messageConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

// ping sends a keepalive ping. WriteControl may run alongside Write.
func (c *messageConn) ping(timeout time.Duration) error {
	return closedErr(c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout)))
}

// closedErr maps a peer close to io.EOF so sessions treat it as a normal
// disconnect.
func closedErr(err error) error {
	if err == nil {
		return nil
	}
	var ce *websocket.CloseError
	if stderrors.As(err, &ce) || stderrors.Is(err, websocket.ErrCloseSent) {
		return io.EOF
	}
	return err
}
