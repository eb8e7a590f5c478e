package serial

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ianfajar-codes/SPS-Enose-Project/bus"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/pkg/retry"
	"github.com/ianfajar-codes/SPS-Enose-Project/testutil"
)

// fakePorts hands out pipes; the test writes device lines into the
// returned writer.
type fakePorts struct {
	mu      sync.Mutex
	fails   int
	opened  chan *io.PipeWriter
	attempt int
}

func newFakePorts(fails int) *fakePorts {
	return &fakePorts{fails: fails, opened: make(chan *io.PipeWriter, 4)}
}

func (f *fakePorts) open(port string, baud int) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempt++
	if f.attempt <= f.fails {
		return nil, stderrors.New("no such file or directory")
	}
	r, w := io.Pipe()
	f.opened <- w
	return r, nil
}

func fastRetry() *retry.Config {
	return &retry.Config{
		MaxAttempts:  retry.Unlimited,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Port = "/dev/ttyTEST"
	return cfg
}

func waitPort(t *testing.T, ports *fakePorts) *io.PipeWriter {
	t.Helper()
	select {
	case w := <-ports.opened:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("port was never opened")
		return nil
	}
}

func TestSource_ReadsFramesFromPort(t *testing.T) {
	b := bus.New()
	sub := b.Subscribe()
	defer sub.Close()

	ports := newFakePorts(0)
	s := NewSource(Deps{Config: testConfig(), Publisher: b, Open: ports.open, RetryConfig: fastRetry()})
	require.NoError(t, s.Initialize())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(time.Second)

	w := waitPort(t, ports)
	_, err := io.WriteString(w, `{"type":"data","sample":"kari","co_m":2,"eth_m":0,"voc_m":0,"no2":0,"eth_gm":0,"voc_gm":0,"co_gm":0}`+"\n"+
		`{"type":"motor","motor":"M1","speed":40}`+"\n")
	require.NoError(t, err)

	ev := testutil.Recv(t, sub)
	require.Equal(t, message.KindReading, ev.Kind)
	assert.Equal(t, "Daun Kari", ev.Reading.Sample)
	assert.Equal(t, 2.0, ev.Reading.COM)

	ev = testutil.Recv(t, sub)
	require.Equal(t, message.KindStatus, ev.Kind)
	assert.Equal(t, 40, *ev.Status.Speed)

	assert.True(t, s.Health().Healthy)
}

func TestSource_ReopensWithFreshSmoothing(t *testing.T) {
	b := bus.New()
	sub := b.Subscribe()
	defer sub.Close()

	ports := newFakePorts(2)
	s := NewSource(Deps{Config: testConfig(), Publisher: b, Open: ports.open, RetryConfig: fastRetry()})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(time.Second)

	line := func(v string) string {
		return `{"type":"data","sample":"x","co_m":` + v + `,"eth_m":0,"voc_m":0,"no2":0,"eth_gm":0,"voc_gm":0,"co_gm":0}` + "\n"
	}

	w := waitPort(t, ports)
	_, err := io.WriteString(w, line("10"))
	require.NoError(t, err)
	assert.Equal(t, 10.0, testutil.Recv(t, sub).Reading.COM)

	// cable pulled
	require.NoError(t, w.CloseWithError(io.ErrUnexpectedEOF))

	w = waitPort(t, ports)
	_, err = io.WriteString(w, line("2"))
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.Recv(t, sub).Reading.COM, "smoothing state must not carry over")

	assert.Equal(t, int64(2), s.Sessions())
	assert.GreaterOrEqual(t, s.Health().ErrorCount, 3) // two failed opens and one broken session
}

func TestSource_StopInterruptsBlockedRead(t *testing.T) {
	ports := newFakePorts(0)
	s := NewSource(Deps{Config: testConfig(), Publisher: bus.New(), Open: ports.open, RetryConfig: fastRetry()})
	require.NoError(t, s.Start(context.Background()))
	waitPort(t, ports)

	require.NoError(t, s.Stop(time.Second))
	assert.False(t, s.Health().Healthy)
	require.NoError(t, s.Stop(time.Second))
}

func TestSource_StopWhileWaitingForPort(t *testing.T) {
	ports := newFakePorts(1 << 30)
	s := NewSource(Deps{Config: testConfig(), Publisher: bus.New(), Open: ports.open, RetryConfig: fastRetry()})
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return s.Health().ErrorCount > 0 }, time.Second, time.Millisecond)

	require.NoError(t, s.Stop(time.Second))
	assert.Zero(t, s.Sessions())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Port = ""
	assert.ErrorIs(t, cfg.Validate(), errors.ErrMissingConfig)

	cfg = DefaultConfig()
	cfg.Baud = 0
	assert.ErrorIs(t, cfg.Validate(), errors.ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Window = 0
	assert.ErrorIs(t, cfg.Validate(), errors.ErrInvalidConfig)

	assert.ErrorIs(t, NewSource(Deps{Config: DefaultConfig()}).Initialize(), errors.ErrMissingConfig)
}
