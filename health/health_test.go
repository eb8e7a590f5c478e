package health

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ianfajar-codes/SPS-Enose-Project/component"
)

func TestConstructors(t *testing.T) {
	h := NewHealthy("relay", "ok")
	assert.True(t, h.IsHealthy())
	assert.True(t, h.Healthy)
	assert.False(t, h.Timestamp.IsZero())

	d := NewDegraded("nats", "reconnecting")
	assert.True(t, d.IsDegraded())
	assert.False(t, d.Healthy)

	u := NewUnhealthy("device", "listener closed")
	assert.True(t, u.IsUnhealthy())
	assert.Equal(t, "device", u.Component)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, StatusHealthy},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, StatusDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("relay", tt.subs)
			assert.Equal(t, tt.want, got.Status)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}
}

func TestAggregate_CopiesInput(t *testing.T) {
	subs := []Status{NewHealthy("a", "")}
	got := Aggregate("relay", subs)
	got.SubStatuses[0].Message = "changed"
	assert.Equal(t, "", subs[0].Message)
}

func TestWithSubStatus_DoesNotShareSlice(t *testing.T) {
	base := NewHealthy("relay", "").WithSubStatus(NewHealthy("a", ""))
	x := base.WithSubStatus(NewHealthy("x", ""))
	y := base.WithSubStatus(NewHealthy("y", ""))

	require.Len(t, x.SubStatuses, 2)
	require.Len(t, y.SubStatuses, 2)
	assert.Equal(t, "x", x.SubStatuses[1].Component)
	assert.Equal(t, "y", y.SubStatuses[1].Component)
	assert.Len(t, base.SubStatuses, 1)
}

func TestFromComponentHealth(t *testing.T) {
	now := time.Now()
	s := FromComponentHealth("device", component.HealthStatus{
		Healthy:    true,
		LastCheck:  now,
		ErrorCount: 2,
		Uptime:     time.Minute,
	})
	assert.True(t, s.IsHealthy())
	assert.Equal(t, "Component healthy", s.Message)
	require.NotNil(t, s.Metrics)
	assert.Equal(t, 2, s.Metrics.ErrorCount)
	assert.Equal(t, time.Minute, s.Metrics.Uptime)
	assert.Equal(t, now, s.Metrics.LastActivity)

	s = FromComponentHealth("device", component.HealthStatus{
		LastError: "listen tcp 0.0.0.0:8081: bind: address already in use",
	})
	assert.True(t, s.IsUnhealthy())
	assert.NotContains(t, s.Message, "0.0.0.0")
	assert.NotContains(t, s.Message, "8081")
}

func TestFromComponents(t *testing.T) {
	s := FromComponents("enose-relay", map[string]component.HealthStatus{
		"relay":  {Healthy: true},
		"device": {Healthy: false, LastError: "stopped"},
	})
	assert.True(t, s.IsUnhealthy())
	require.Len(t, s.SubStatuses, 2)
	assert.Equal(t, "device", s.SubStatuses[0].Component)
	assert.Equal(t, "relay", s.SubStatuses[1].Component)

	body, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status":"unhealthy"`)
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"open /var/lib/enose/sensor_data.csv: permission denied", "open [PATH]: permission denied"},
		{"cannot read C:\\data\\sensor_data.csv", "cannot read [PATH]"},
		{"dial nats://broker:4222 refused", "dial [URL] refused"},
		{"dial tcp 192.168.1.20 refused", "dial tcp [IP] refused"},
		{"connect with token=abc123 failed", "connect with [REDACTED] failed"},
		{"device closed the connection", "device closed the connection"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeErrorMessage(tt.in), tt.in)
	}
}
