package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
)

// Manager starts a fixed set of components in registration order and stops
// them in reverse.
type Manager struct {
	logger *slog.Logger

	mu         sync.Mutex
	components []*ManagedComponent
	byName     map[string]*ManagedComponent
	started    bool
}

// NewManager creates an empty manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger.With("component", "component-manager"),
		byName: make(map[string]*ManagedComponent),
	}
}

// Register adds a component. Names must be unique and registration is closed
// once the manager has started.
func (m *Manager) Register(name string, c LifecycleComponent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Manager", "Register", "register "+name)
	}
	if name == "" || c == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: component needs a name and an instance", errors.ErrInvalidConfig),
			"Manager", "Register", "validate component")
	}
	if _, exists := m.byName[name]; exists {
		return errors.WrapInvalid(fmt.Errorf("%w: duplicate component %q", errors.ErrInvalidConfig, name),
			"Manager", "Register", "validate component")
	}

	mc := &ManagedComponent{Name: name, Component: c, State: StateCreated}
	m.components = append(m.components, mc)
	m.byName[name] = mc
	return nil
}

// Start initializes and starts every component in registration order. If
// one fails, the components already started are stopped again and the error
// is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Manager", "Start", "start components")
	}
	m.started = true
	components := append([]*ManagedComponent(nil), m.components...)
	m.mu.Unlock()

	for i, mc := range components {
		if err := m.startOne(ctx, mc, i); err != nil {
			m.logger.Error("Component failed to start", "name", mc.Name, "error", err)
			if stopErr := m.Stop(5 * time.Second); stopErr != nil {
				m.logger.Warn("Rollback after failed start was incomplete", "error", stopErr)
			}
			return err
		}
		m.logger.Info("Component started", "name", mc.Name, "type", mc.Component.Meta().Type)
	}
	return nil
}

func (m *Manager) startOne(ctx context.Context, mc *ManagedComponent, order int) error {
	if err := mc.Component.Initialize(); err != nil {
		m.setState(mc, StateFailed, err)
		return fmt.Errorf("initialize %s: %w", mc.Name, err)
	}
	m.setState(mc, StateInitialized, nil)

	childCtx, cancel := context.WithCancel(ctx)
	if err := mc.Component.Start(childCtx); err != nil {
		cancel()
		m.setState(mc, StateFailed, err)
		return fmt.Errorf("start %s: %w", mc.Name, err)
	}

	m.mu.Lock()
	mc.Cancel = cancel
	mc.StartOrder = order
	mc.State = StateStarted
	mc.LastError = nil
	m.mu.Unlock()
	return nil
}

// Stop stops every started component in reverse start order, sharing one
// overall timeout. It returns the joined stop errors.
func (m *Manager) Stop(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	m.mu.Lock()
	running := make([]*ManagedComponent, 0, len(m.components))
	for _, mc := range m.components {
		if mc.State == StateStarted {
			running = append(running, mc)
		}
	}
	m.mu.Unlock()

	var errs []error
	for i := len(running) - 1; i >= 0; i-- {
		mc := running[i]

		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = time.Millisecond
		}

		err := mc.Component.Stop(remaining)

		m.mu.Lock()
		if mc.Cancel != nil {
			mc.Cancel()
			mc.Cancel = nil
		}
		m.mu.Unlock()

		if err != nil {
			m.setState(mc, StateFailed, err)
			errs = append(errs, fmt.Errorf("stop %s: %w", mc.Name, err))
			continue
		}
		m.setState(mc, StateStopped, nil)
		m.logger.Debug("Component stopped", "name", mc.Name)
	}
	return stderrors.Join(errs...)
}

func (m *Manager) setState(mc *ManagedComponent, state State, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc.State = state
	mc.LastError = err
}

// Component returns a registered component by name.
func (m *Manager) Component(name string) (LifecycleComponent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return mc.Component, true
}

// States returns the lifecycle state of every component.
func (m *Manager) States() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]State, len(m.components))
	for _, mc := range m.components {
		out[mc.Name] = mc.State
	}
	return out
}

// ComponentHealth returns the health of every component. Components that
// are not running are reported unhealthy.
func (m *Manager) ComponentHealth() map[string]HealthStatus {
	m.mu.Lock()
	components := append([]*ManagedComponent(nil), m.components...)
	m.mu.Unlock()

	out := make(map[string]HealthStatus, len(components))
	for _, mc := range components {
		h := mc.Component.Health()
		m.mu.Lock()
		state, lastErr := mc.State, mc.LastError
		m.mu.Unlock()
		if state != StateStarted {
			h.Healthy = false
			if lastErr != nil && h.LastError == "" {
				h.LastError = lastErr.Error()
			}
		}
		out[mc.Name] = h
	}
	return out
}
