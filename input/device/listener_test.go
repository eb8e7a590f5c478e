package device

import (
	"context"
	"net"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ianfajar-codes/SPS-Enose-Project/bus"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
	"github.com/ianfajar-codes/SPS-Enose-Project/pkg/retry"
	"github.com/ianfajar-codes/SPS-Enose-Project/testutil"
)

func startListener(t *testing.T, pub Publisher, registry *metric.MetricsRegistry) *Listener {
	t.Helper()
	l := NewListener(ListenerDeps{
		Config:          Config{Addr: "127.0.0.1:0", Window: 3},
		Publisher:       pub,
		MetricsRegistry: registry,
	})
	require.NoError(t, l.Initialize())
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop(2 * time.Second) })
	return l
}

func TestListener_EndToEnd(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	b := bus.New()
	sub := b.Subscribe()
	defer sub.Close()

	l := startListener(t, b, registry)
	assert.True(t, l.Health().Healthy)

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)

	_, err = conn.Write([]byte(
		testutil.DataLine("kari", 2) + "\n" +
			"not json\n" +
			`{"type":"foo"}` + "\n" +
			testutil.DataLine("kari", 4) + "\r\n" +
			`{"type":"motor","motor":"M1","speed":60}` + "\n"))
	require.NoError(t, err)

	ev := testutil.Recv(t, sub)
	assert.Equal(t, 2.0, ev.Reading.COM)
	ev = testutil.Recv(t, sub)
	assert.Equal(t, 3.0, ev.Reading.COM)
	ev = testutil.Recv(t, sub)
	require.Equal(t, message.KindStatus, ev.Kind)
	assert.Equal(t, "M1", *ev.Status.Motor)

	require.Eventually(t, func() bool { return l.ActiveSessions() == 1 }, time.Second, 5*time.Millisecond)
	core := registry.CoreMetrics()
	assert.Equal(t, 1.0, promtestutil.ToFloat64(core.FramesRejected.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(core.FramesRejected.WithLabelValues("unknown_type")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(core.SessionsActive.WithLabelValues("device")))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return l.ActiveSessions() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0.0, promtestutil.ToFloat64(core.SessionsActive.WithLabelValues("device")))
	assert.Greater(t, l.DataFlow().MessagesPerSecond, 0.0)
}

func TestListener_ReconnectResetsSmoothing(t *testing.T) {
	b := bus.New()
	sub := b.Subscribe()
	defer sub.Close()
	l := startListener(t, b, nil)

	first, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	_, err = first.Write([]byte(testutil.DataLine("kari", 100) + "\n"))
	require.NoError(t, err)
	assert.Equal(t, 100.0, testutil.Recv(t, sub).Reading.COM)
	require.NoError(t, first.Close())

	second, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer second.Close()
	_, err = second.Write([]byte(testutil.DataLine("kari", 2) + "\n"))
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.Recv(t, sub).Reading.COM)
}

func TestListener_StopClosesSessions(t *testing.T) {
	b := bus.New()
	l := startListener(t, b, nil)

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return l.ActiveSessions() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, l.Stop(2*time.Second))
	assert.False(t, l.Health().Healthy)

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestListener_BindFailureIsFatal(t *testing.T) {
	addr := testutil.HoldPort(t)

	rc := retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	l := NewListener(ListenerDeps{
		Config:      Config{Addr: addr, Window: 3},
		Publisher:   bus.New(),
		RetryConfig: &rc,
	})
	require.NoError(t, l.Initialize())

	err := l.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBindFailed)
	assert.True(t, errors.IsFatal(err))
	assert.NoError(t, l.Stop(time.Second))
}

func TestListener_ContextCancelStops(t *testing.T) {
	l := NewListener(ListenerDeps{Config: Config{Addr: "127.0.0.1:0", Window: 3}, Publisher: bus.New()})
	require.NoError(t, l.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Start(ctx))
	addr := l.Addr().String()

	cancel()
	require.Eventually(t, func() bool {
		c, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return true
		}
		_ = c.Close()
		return false
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, l.Stop(time.Second))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, Config{Window: 3}.Validate(), errors.ErrMissingConfig)
	assert.ErrorIs(t, Config{Addr: "nohost", Window: 3}.Validate(), errors.ErrInvalidConfig)
	assert.ErrorIs(t, Config{Addr: ":8081", Window: 0}.Validate(), errors.ErrInvalidConfig)

	l := NewListener(ListenerDeps{Config: DefaultConfig()})
	assert.ErrorIs(t, l.Initialize(), errors.ErrMissingConfig)
}
