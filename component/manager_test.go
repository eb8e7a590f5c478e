package component

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeComponent struct {
	name     string
	rec      *recorder
	startErr error
	stopErr  error
	ctx      context.Context
}

func (f *fakeComponent) Meta() Metadata { return Metadata{Name: f.name, Type: "input"} }
func (f *fakeComponent) Health() HealthStatus {
	return HealthStatus{Healthy: true, LastCheck: time.Now()}
}
func (f *fakeComponent) DataFlow() FlowMetrics { return FlowMetrics{} }
func (f *fakeComponent) Initialize() error {
	f.rec.add("init:" + f.name)
	return nil
}
func (f *fakeComponent) Start(ctx context.Context) error {
	f.rec.add("start:" + f.name)
	f.ctx = ctx
	return f.startErr
}
func (f *fakeComponent) Stop(time.Duration) error {
	f.rec.add("stop:" + f.name)
	return f.stopErr
}

func TestManager_StartAndReverseStop(t *testing.T) {
	rec := &recorder{}
	m := NewManager(nil)
	a := &fakeComponent{name: "a", rec: rec}
	b := &fakeComponent{name: "b", rec: rec}
	require.NoError(t, m.Register("a", a))
	require.NoError(t, m.Register("b", b))

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, map[string]State{"a": StateStarted, "b": StateStarted}, m.States())

	require.NoError(t, m.Stop(time.Second))
	assert.Equal(t, []string{"init:a", "start:a", "init:b", "start:b", "stop:b", "stop:a"}, rec.list())
	assert.Equal(t, StateStopped, m.States()["a"])
	assert.ErrorIs(t, a.ctx.Err(), context.Canceled)
}

func TestManager_FailedStartRollsBack(t *testing.T) {
	rec := &recorder{}
	m := NewManager(nil)
	bindErr := errors.WrapFatal(errors.ErrBindFailed, "Test", "Start", "bind")
	require.NoError(t, m.Register("a", &fakeComponent{name: "a", rec: rec}))
	require.NoError(t, m.Register("b", &fakeComponent{name: "b", rec: rec, startErr: bindErr}))
	require.NoError(t, m.Register("c", &fakeComponent{name: "c", rec: rec}))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBindFailed)
	assert.True(t, errors.IsFatal(err))

	assert.Equal(t, []string{"init:a", "start:a", "init:b", "start:b", "stop:a"}, rec.list())
	states := m.States()
	assert.Equal(t, StateFailed, states["b"])
	assert.Equal(t, StateCreated, states["c"])

	h := m.ComponentHealth()
	assert.False(t, h["b"].Healthy)
	assert.NotEmpty(t, h["b"].LastError)
}

func TestManager_StopJoinsErrors(t *testing.T) {
	m := NewManager(nil)
	boom := stderrors.New("boom")
	require.NoError(t, m.Register("a", &fakeComponent{name: "a", rec: &recorder{}, stopErr: boom}))
	require.NoError(t, m.Start(context.Background()))

	err := m.Stop(time.Second)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, m.States()["a"])
}

func TestManager_Register(t *testing.T) {
	m := NewManager(nil)
	c := &fakeComponent{name: "a", rec: &recorder{}}

	require.NoError(t, m.Register("a", c))
	assert.ErrorIs(t, m.Register("a", c), errors.ErrInvalidConfig)
	assert.ErrorIs(t, m.Register("", c), errors.ErrInvalidConfig)

	got, ok := m.Component("a")
	assert.True(t, ok)
	assert.Same(t, c, got)
	_, ok = m.Component("missing")
	assert.False(t, ok)

	require.NoError(t, m.Start(context.Background()))
	assert.ErrorIs(t, m.Register("b", c), errors.ErrAlreadyStarted)
	assert.ErrorIs(t, m.Start(context.Background()), errors.ErrAlreadyStarted)
	require.NoError(t, m.Stop(time.Second))
}

func TestRates(t *testing.T) {
	now := time.Now()
	fm := Rates(90, 900, 10, 10*time.Second, now)
	assert.InDelta(t, 9.0, fm.MessagesPerSecond, 1e-9)
	assert.InDelta(t, 90.0, fm.BytesPerSecond, 1e-9)
	assert.InDelta(t, 0.1, fm.ErrorRate, 1e-9)
	assert.Equal(t, now, fm.LastActivity)

	assert.Equal(t, FlowMetrics{}, Rates(0, 0, 0, 0, time.Time{}))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "started", StateStarted.String())
	assert.Equal(t, "unknown", State(99).String())
}
