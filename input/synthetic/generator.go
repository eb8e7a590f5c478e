package synthetic

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ianfajar-codes/SPS-Enose-Project/component"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/processor/normalizer"
)

// M1Speeds is the M1 speed cycle, in percent.
var M1Speeds = []int{20, 40, 60, 80, 100}

// M2Speed is the fixed M2 speed, in percent.
const M2Speed = 50

const (
	motorStatusEvery = 5
	m1CycleEvery     = 10
)

// Config holds the generator settings.
type Config struct {
	Enabled  bool          `yaml:"enabled"`
	Sample   string        `yaml:"sample"`
	Interval time.Duration `yaml:"interval"`
	Seed     int64         `yaml:"seed"` // 0 seeds from the clock
}

// DefaultConfig returns the default generator settings.
func DefaultConfig() Config {
	return Config{
		Enabled:  false,
		Sample:   "Daun Kari",
		Interval: 2 * time.Second,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: synthetic interval must be positive", errors.ErrInvalidConfig),
			"SyntheticConfig", "Validate", "check interval")
	}
	if normalizer.CanonicalSample(c.Sample) == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: synthetic sample is empty", errors.ErrMissingConfig),
			"SyntheticConfig", "Validate", "check sample")
	}
	return nil
}

// Publisher accepts events for broadcast. *bus.Bus implements it.
type Publisher interface {
	Publish(message.Event)
}

// Deps holds runtime dependencies for the generator.
type Deps struct {
	Name      string
	Config    Config
	Publisher Publisher
	Logger    *slog.Logger
	Now       func() time.Time // nil uses time.Now
}

// Generator publishes synthetic readings on a fixed cadence.
type Generator struct {
	name      string
	config    Config
	sample    string
	profile   Profile
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	// tick state, owned by the run goroutine
	rng     *rand.Rand
	counter int
	m1Step  int

	lifecycleMu sync.Mutex
	running     atomic.Bool
	cancel      context.CancelFunc
	done        chan struct{}
	startTime   time.Time

	ticks        atomic.Int64
	published    atomic.Int64
	lastActivity atomic.Value // time.Time
}

var (
	_ component.Discoverable       = (*Generator)(nil)
	_ component.LifecycleComponent = (*Generator)(nil)
)

// NewGenerator creates a generator.
func NewGenerator(deps Deps) *Generator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "synthetic-source"
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	seed := deps.Config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	sample := normalizer.CanonicalSample(deps.Config.Sample)
	g := &Generator{
		name:      name,
		config:    deps.Config,
		sample:    sample,
		profile:   ProfileFor(sample),
		publisher: deps.Publisher,
		logger:    logger.With("component", name),
		now:       now,
		rng:       rand.New(rand.NewSource(seed)),
		startTime: time.Now(),
	}
	g.lastActivity.Store(time.Time{})
	return g
}

// Tick advances the generator by one sample and returns the events for it
// in publish order: the reading, then motor status on every 5th sample,
// then calibration progress on the first two.
func (g *Generator) Tick() []message.Event {
	g.counter++
	m1 := M1Speeds[g.m1Step]

	reading := Synthesize(g.profile, g.counter, m1, M2Speed, g.rng)
	reading.Timestamp = uint64(g.now().UnixMilli())
	reading.Sample = g.sample

	events := []message.Event{message.NewReadingEvent(reading)}
	g.logger.Info("Synthetic reading",
		"n", g.counter, "sample", g.sample, "m1", m1, "m2", M2Speed,
		"co_m", round2(reading.COM), "eth_m", round2(reading.EthM), "voc_m", round2(reading.VOCM))

	if g.counter%motorStatusEvery == 0 {
		events = append(events,
			message.NewStatusEvent(message.NewMotorStatus("M1", m1)),
			message.NewStatusEvent(message.NewMotorStatus("M2", M2Speed)))
	}
	if g.counter%m1CycleEvery == 0 {
		g.m1Step = (g.m1Step + 1) % len(M1Speeds)
		g.logger.Info("M1 speed cycled", "m1", M1Speeds[g.m1Step], "m2", M2Speed)
	}
	switch g.counter {
	case 1:
		events = append(events, message.NewStatusEvent(message.NewCalibProgress(5, 10)))
	case 2:
		events = append(events, message.NewStatusEvent(message.NewCalibProgress(10, 10)))
	}
	return events
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Meta returns the component metadata
func (g *Generator) Meta() component.Metadata {
	return component.Metadata{
		Name:        g.name,
		Type:        "input",
		Description: fmt.Sprintf("Synthetic %s readings every %v", g.sample, g.config.Interval),
		Version:     "1.0.0",
	}
}

// Health returns the current health status of the component
func (g *Generator) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:   g.running.Load(),
		LastCheck: time.Now(),
		Uptime:    time.Since(g.startTime),
	}
}

// DataFlow returns the current data flow metrics
func (g *Generator) DataFlow() component.FlowMetrics {
	last, _ := g.lastActivity.Load().(time.Time)
	return component.Rates(g.published.Load(), 0, 0, time.Since(g.startTime), last)
}

// Initialize validates the configuration
func (g *Generator) Initialize() error {
	if g.publisher == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: nil publisher", errors.ErrMissingConfig),
			"SyntheticSource", "Initialize", "publisher validation")
	}
	return g.config.Validate()
}

// Start begins generating. The first sample is published one interval
// after Start.
func (g *Generator) Start(ctx context.Context) error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if g.running.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "SyntheticSource", "Start", "check state")
	}

	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.done = make(chan struct{})
	g.startTime = time.Now()
	g.running.Store(true)

	limiter := rate.NewLimiter(rate.Every(g.config.Interval), 1)
	limiter.Allow() // spend the initial burst so the first tick waits a full interval

	go g.run(ctx, limiter)

	g.logger.Info("Synthetic source started", "sample", g.sample, "interval", g.config.Interval)
	return nil
}

func (g *Generator) run(ctx context.Context, limiter *rate.Limiter) {
	defer close(g.done)
	defer g.running.Store(false)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		events := g.Tick()
		for _, ev := range events {
			g.publisher.Publish(ev)
		}
		g.ticks.Add(1)
		g.published.Add(int64(len(events)))
		g.lastActivity.Store(time.Now())
	}
}

// Ticks returns the number of samples generated since Start.
func (g *Generator) Ticks() int64 {
	return g.ticks.Load()
}

// Stop halts generation.
func (g *Generator) Stop(timeout time.Duration) error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if g.cancel == nil {
		return nil
	}
	g.cancel()

	select {
	case <-g.done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("%w: stop timeout after %v", errors.ErrShuttingDown, timeout),
			"SyntheticSource", "Stop", "wait for generator")
	}
	g.cancel = nil
	g.logger.Info("Synthetic source stopped", "samples", g.ticks.Load())
	return nil
}
