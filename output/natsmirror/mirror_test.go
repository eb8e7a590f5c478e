package natsmirror

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ianfajar-codes/SPS-Enose-Project/bus"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
	"github.com/ianfajar-codes/SPS-Enose-Project/natsclient"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	msgs     []published
	fail     error
	connects int
	closed   bool
	healthy  bool
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.msgs = append(f.msgs, published{subject: subject, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakePublisher) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.healthy = true
	return nil
}

func (f *fakePublisher) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.healthy = false
	return nil
}

func (f *fakePublisher) IsHealthy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

func (f *fakePublisher) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

func startMirror(t *testing.T, b *bus.Bus, pub Publisher, registry *metric.MetricsRegistry) *Mirror {
	t.Helper()
	m := NewMirror(Deps{Config: DefaultConfig(), Bus: b, Publisher: pub, MetricsRegistry: registry})
	require.NoError(t, m.Initialize())
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(time.Second) })
	return m
}

func TestMirror_Subjects(t *testing.T) {
	m := NewMirror(Deps{Config: DefaultConfig()})

	assert.Equal(t, "enose.reading.daun_kari",
		m.Subject(message.NewReadingEvent(message.SensorReading{Sample: "Daun Kari"})))
	assert.Equal(t, "enose.status.motor", m.Subject(message.NewStatusEvent(message.NewMotorStatus("M1", 20))))
	assert.Equal(t, "enose.status.calib_progress",
		m.Subject(message.NewStatusEvent(message.NewCalibProgress(1, 10))))
	assert.Equal(t, "enose.command", m.Subject(message.NewCommandEvent("START", "x")))
	assert.Equal(t, "enose.unknown", m.Subject(message.Event{}))
}

func TestMirror_ForwardsEveryKind(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	pub := &fakePublisher{}
	b := bus.New()
	m := startMirror(t, b, pub, registry)

	b.Publish(message.NewReadingEvent(message.SensorReading{Timestamp: 5, Sample: "Serai", NO2: 5.8}))
	b.Publish(message.NewStatusEvent(message.NewDeviceStatus("ready", "ok")))
	b.Publish(message.NewCommandEvent("START", "session-1"))

	require.Eventually(t, func() bool { return len(pub.messages()) == 3 }, 2*time.Second, 5*time.Millisecond)
	msgs := pub.messages()

	assert.Equal(t, "enose.reading.serai", msgs[0].subject)
	var r message.SensorReading
	require.NoError(t, json.Unmarshal(msgs[0].data, &r))
	assert.Equal(t, uint64(5), r.Timestamp)
	assert.Equal(t, 5.8, r.NO2)

	assert.Equal(t, "enose.status.status", msgs[1].subject)
	assert.JSONEq(t, `{"msg_type":"status","status":"ready","message":"ok"}`, string(msgs[1].data))

	assert.Equal(t, "enose.command", msgs[2].subject)
	assert.JSONEq(t, `{"command":"START","origin":"session-1"}`, string(msgs[2].data))

	assert.Equal(t, int64(3), m.Published())
	core := registry.CoreMetrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(core.NATSPublished.WithLabelValues("reading")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.NATSPublished.WithLabelValues("command")))
	assert.Eventually(t, m.Connected, time.Second, 5*time.Millisecond)
}

func TestMirror_PublishFailuresAreCounted(t *testing.T) {
	pub := &fakePublisher{fail: natsclient.ErrNotConnected}
	b := bus.New()
	m := startMirror(t, b, pub, nil)

	for i := 0; i < 3; i++ {
		b.Publish(message.NewCommandEvent("PING", ""))
	}

	require.Eventually(t, func() bool { return m.Health().ErrorCount == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, m.Health().Healthy)
	assert.Contains(t, m.Health().LastError, "not connected")
	assert.Zero(t, m.Published())
}

func TestMirror_StopClosesConnector(t *testing.T) {
	pub := &fakePublisher{}
	b := bus.New()
	m := NewMirror(Deps{Config: DefaultConfig(), Bus: b, Publisher: pub})
	require.NoError(t, m.Initialize())
	require.NoError(t, m.Start(context.Background()))
	assert.ErrorIs(t, m.Start(context.Background()), errors.ErrAlreadyStarted)

	require.NoError(t, m.Stop(time.Second))
	assert.True(t, pub.closed)
	assert.False(t, m.Health().Healthy)
	assert.Equal(t, 0, b.SubscriberCount())
	require.NoError(t, m.Stop(time.Second))
}

type plainPublisher struct{ n int }

func (p *plainPublisher) Publish(context.Context, string, []byte) error {
	p.n++
	return stderrors.New("boom")
}

func TestMirror_PlainPublisherHasNoLifecycle(t *testing.T) {
	m := startMirror(t, bus.New(), &plainPublisher{}, nil)
	assert.True(t, m.Connected())
}

func TestMirror_InitializeBuildsClient(t *testing.T) {
	m := NewMirror(Deps{Config: DefaultConfig(), Bus: bus.New()})
	require.NoError(t, m.Initialize())
	client, ok := m.publisher.(*natsclient.Client)
	require.True(t, ok)
	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.False(t, m.Connected())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	for _, prefix := range []string{"", "en ose", "enose.>", ".enose", "enose."} {
		cfg := DefaultConfig()
		cfg.SubjectPrefix = prefix
		assert.ErrorIs(t, cfg.Validate(), errors.ErrInvalidConfig, prefix)
	}

	cfg := DefaultConfig()
	cfg.URL = ""
	assert.ErrorIs(t, cfg.Validate(), errors.ErrMissingConfig)
}
