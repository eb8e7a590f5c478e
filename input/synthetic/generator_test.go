package synthetic

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ianfajar-codes/SPS-Enose-Project/bus"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/testutil"
)

func fixedClock() time.Time { return time.UnixMilli(1700000000000) }

func TestProfileFor(t *testing.T) {
	assert.Equal(t, Profile{CO: 45, Eth: 25, VOC: 60, NO2: 5}, ProfileFor("Daun Kari"))
	assert.Equal(t, Profile{CO: 38, Eth: 32, VOC: 55, NO2: 6.5}, ProfileFor("kemangi"))
	assert.Equal(t, Profile{CO: 52, Eth: 20, VOC: 70, NO2: 4.2}, ProfileFor("DAUN JERUK"))
	assert.Equal(t, Profile{CO: 40, Eth: 28, VOC: 65, NO2: 5.8}, ProfileFor("Daun Serai"))
	assert.Equal(t, ProfileFor("Daun Kari"), ProfileFor("Daun Pandan"))
}

func TestMotorFactor(t *testing.T) {
	assert.InDelta(t, 0.32, MotorFactor(20, 50), 1e-9)
	assert.InDelta(t, 0.8, MotorFactor(100, 50), 1e-9)
	assert.InDelta(t, 0.0, MotorFactor(0, 0), 1e-9)
}

func TestSynthesize_StaysWithinJitter(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := ProfileFor("Daun Jeruk")

	for n := 1; n <= 200; n++ {
		m1 := M1Speeds[n%len(M1Speeds)]
		cf := MotorFactor(m1, M2Speed)
		gain := 0.6 + cf*0.6
		r := Synthesize(p, n, m1, M2Speed, rng)

		// sine drift adds at most 1.5 on co_m
		assert.InDelta(t, p.CO*gain, r.COM, 2.5+1.5)
		assert.InDelta(t, p.Eth*gain, r.EthM, 1.8+0.75)
		assert.InDelta(t, p.VOC*gain, r.VOCM, 4.0+1.05)
		assert.InDelta(t, p.NO2*(0.7+cf*0.4), r.NO2, 0.8)
		assert.InDelta(t, p.Eth*1.35*gain, r.EthGM, 2.2)
		assert.InDelta(t, p.VOC*0.92*gain, r.VOCGM, 3.5)
		assert.InDelta(t, p.CO*1.12*gain, r.COGM, 2.8)
	}
}

func TestSynthesize_SeedIsDeterministic(t *testing.T) {
	p := ProfileFor("Daun Kari")
	a := Synthesize(p, 3, 40, 50, rand.New(rand.NewSource(7)))
	b := Synthesize(p, 3, 40, 50, rand.New(rand.NewSource(7)))
	assert.Equal(t, a, b)
}

func TestGenerator_TickSchedule(t *testing.T) {
	g := NewGenerator(Deps{Config: Config{Sample: "serai", Interval: time.Second, Seed: 42}, Now: fixedClock})

	type tick struct {
		motors []int // M1 then M2 speed when a motor status follows
		calib  []int
	}
	var got []tick
	for i := 0; i < 20; i++ {
		events := g.Tick()
		require.NotEmpty(t, events)

		r := events[0]
		require.Equal(t, message.KindReading, r.Kind)
		assert.Equal(t, "Daun Serai", r.Reading.Sample)
		assert.Equal(t, uint64(1700000000000), r.Reading.Timestamp)

		var tk tick
		for _, ev := range events[1:] {
			require.Equal(t, message.KindStatus, ev.Kind)
			switch ev.Status.MsgType {
			case message.StatusKindMotor:
				tk.motors = append(tk.motors, *ev.Status.Speed)
			case message.StatusKindCalibProgress:
				tk.calib = append(tk.calib, *ev.Status.Current, *ev.Status.Total)
			}
		}
		got = append(got, tk)
	}

	assert.Equal(t, []int{5, 10}, got[0].calib)
	assert.Equal(t, []int{10, 10}, got[1].calib)
	assert.Nil(t, got[2].calib)

	// motor status uses the speed in effect for that sample, before cycling
	assert.Equal(t, []int{20, 50}, got[4].motors)
	assert.Equal(t, []int{20, 50}, got[9].motors)
	assert.Equal(t, []int{40, 50}, got[14].motors)
	assert.Equal(t, []int{40, 50}, got[19].motors)
	for i, tk := range got {
		if (i+1)%5 != 0 {
			assert.Nil(t, tk.motors, "sample %d", i+1)
		}
	}
}

func TestGenerator_M1Wraps(t *testing.T) {
	g := NewGenerator(Deps{Config: Config{Sample: "kari", Interval: time.Second, Seed: 1}})
	var speeds []int
	for i := 1; i <= 60; i++ {
		for _, ev := range g.Tick() {
			if ev.Kind == message.KindStatus && ev.Status.MsgType == message.StatusKindMotor && *ev.Status.Motor == "M1" {
				if i%10 == 0 {
					speeds = append(speeds, *ev.Status.Speed)
				}
			}
		}
	}
	assert.Equal(t, []int{20, 40, 60, 80, 100, 20}, speeds)
}

func TestGenerator_PublishesOnCadence(t *testing.T) {
	b := bus.New()
	sub := b.Subscribe()
	defer sub.Close()

	g := NewGenerator(Deps{Config: Config{Sample: "Daun Kari", Interval: 20 * time.Millisecond, Seed: 3}, Publisher: b})
	require.NoError(t, g.Initialize())
	require.NoError(t, g.Start(context.Background()))
	assert.ErrorIs(t, g.Start(context.Background()), errors.ErrAlreadyStarted)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, message.KindReading, first.Kind)
	calib, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, message.StatusKindCalibProgress, calib.Status.MsgType)

	require.Eventually(t, func() bool { return g.Ticks() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, g.Health().Healthy)

	require.NoError(t, g.Stop(time.Second))
	assert.False(t, g.Health().Healthy)
	ticks := g.Ticks()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, ticks, g.Ticks())
	require.NoError(t, g.Stop(time.Second))
}

func TestGenerator_FirstSampleWaitsOneInterval(t *testing.T) {
	rec := &testutil.CapturePublisher{}
	g := NewGenerator(Deps{Config: Config{Sample: "kari", Interval: 200 * time.Millisecond}, Publisher: rec})
	require.NoError(t, g.Start(context.Background()))
	defer g.Stop(time.Second)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.Len())
	require.Eventually(t, func() bool { return rec.Len() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Interval = 0
	assert.ErrorIs(t, cfg.Validate(), errors.ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Sample = "   "
	assert.ErrorIs(t, cfg.Validate(), errors.ErrMissingConfig)

	assert.ErrorIs(t, NewGenerator(Deps{Config: DefaultConfig()}).Initialize(), errors.ErrMissingConfig)
}
