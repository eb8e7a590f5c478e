package testutil

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// LineTimeout bounds ReadLine.
const LineTimeout = 2 * time.Second

// DialLines connects to a line-oriented TCP endpoint. The connection is
// closed when the test ends.
func DialLines(t testing.TB, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, bufio.NewReader(conn)
}

// ReadLine reads one newline-terminated line, failing the test after
// LineTimeout.
func ReadLine(t testing.TB, conn net.Conn, r *bufio.Reader) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(LineTimeout)))
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return line
}

// HoldPort binds a loopback port for the rest of the test and returns its
// address, so a second bind on it fails.
func HoldPort(t testing.TB) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln.Addr().String()
}
