package health

import (
	"context"
	"sync"
	"time"

	"github.com/bryanwahyu/reqanalyzer/internal/domain/ai"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/ai/offline"
)

// State of one backend as seen by the monitor.
type State string

const (
	StateHealthy     State = "healthy"
	StateDegraded    State = "degraded"
	StateUnavailable State = "unavailable"
)

// BackendState is the observable snapshot for status displays.
type BackendState struct {
	ID          string    `json:"id"`
	State       State     `json:"state"`
	LastChecked time.Time `json:"last_checked"`
	LastError   string    `json:"last_error,omitempty"`
}

// Listener receives state-change notifications. Callbacks run synchronously
// on the probing goroutine and must be cheap.
type Listener func(BackendState)

// Clock abstraction supaya gampang ditest
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type backendEntry struct {
	gen           ai.Generator
	state         State
	lastChecked   time.Time
	lastErr       string
	cooldown      time.Duration
	cooldownUntil time.Time
	failures      int
}

// Monitor tracks backend reachability and always yields a usable generator.
// All backend-failure handling lives here: callers never fall back on their
// own, they just use whatever ActiveGenerator hands them.
type Monitor struct {
	mu           sync.Mutex
	backends     map[string]*backendEntry
	listeners    []Listener
	stub         ai.Generator
	probeTimeout time.Duration
	baseCooldown time.Duration
	maxCooldown  time.Duration
	clock        Clock
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option { return func(m *Monitor) { m.clock = c } }

// WithProbeTimeout overrides the short probe deadline.
func WithProbeTimeout(d time.Duration) Option { return func(m *Monitor) { m.probeTimeout = d } }

// WithCooldown overrides the backoff window bounds.
func WithCooldown(base, max time.Duration) Option {
	return func(m *Monitor) {
		m.baseCooldown = base
		m.maxCooldown = max
	}
}

// NewMonitor builds a monitor over the given generators, keyed by backend id.
func NewMonitor(backends map[string]ai.Generator, opts ...Option) *Monitor {
	m := &Monitor{
		backends:     make(map[string]*backendEntry, len(backends)),
		stub:         offline.NewStub(),
		probeTimeout: 3 * time.Second,
		baseCooldown: 10 * time.Second,
		maxCooldown:  5 * time.Minute,
		clock:        systemClock{},
	}
	for id, gen := range backends {
		m.backends[id] = &backendEntry{gen: gen, state: StateHealthy}
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Subscribe registers a listener for state changes.
func (m *Monitor) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// ActiveGenerator returns a working generator for the backend, or the
// deterministic stub when the backend is unknown, cooling down, or fails its
// probe. It never returns nil and never returns an error.
func (m *Monitor) ActiveGenerator(ctx context.Context, backendID string) ai.Generator {
	m.mu.Lock()
	entry, ok := m.backends[backendID]
	if !ok {
		m.mu.Unlock()
		return m.stub
	}
	now := m.clock.Now()
	// Inside the cooldown window: don't re-probe, degrade straight away.
	if entry.state == StateUnavailable && now.Before(entry.cooldownUntil) {
		m.mu.Unlock()
		return m.stub
	}
	gen := entry.gen
	m.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()
	err := gen.Probe(probeCtx)

	m.mu.Lock()
	entry.lastChecked = m.clock.Now()
	if err != nil {
		entry.failures++
		entry.lastErr = err.Error()
		next := StateDegraded
		if entry.failures > 1 {
			next = StateUnavailable
		}
		// Capped exponential backoff before the next probe.
		if entry.cooldown == 0 {
			entry.cooldown = m.baseCooldown
		} else {
			entry.cooldown *= 2
			if entry.cooldown > m.maxCooldown {
				entry.cooldown = m.maxCooldown
			}
		}
		if next == StateUnavailable {
			entry.cooldownUntil = entry.lastChecked.Add(entry.cooldown)
		}
		m.transition(backendID, entry, next)
		m.mu.Unlock()
		return m.stub
	}

	entry.failures = 0
	entry.lastErr = ""
	entry.cooldown = 0
	entry.cooldownUntil = time.Time{}
	m.transition(backendID, entry, StateHealthy)
	m.mu.Unlock()
	return gen
}

// ReportFailure lets callers demote a backend after a generation call failed
// even though the probe had passed.
func (m *Monitor) ReportFailure(backendID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.backends[backendID]
	if !ok {
		return
	}
	entry.failures++
	if err != nil {
		entry.lastErr = err.Error()
	}
	entry.lastChecked = m.clock.Now()
	if entry.cooldown == 0 {
		entry.cooldown = m.baseCooldown
	}
	entry.cooldownUntil = entry.lastChecked.Add(entry.cooldown)
	m.transition(backendID, entry, StateUnavailable)
}

// States returns a snapshot of every backend, for the status endpoint.
func (m *Monitor) States() []BackendState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BackendState, 0, len(m.backends))
	for id, e := range m.backends {
		out = append(out, BackendState{ID: id, State: e.state, LastChecked: e.lastChecked, LastError: e.lastErr})
	}
	return out
}

// transition updates state and fires listeners; caller holds the lock.
func (m *Monitor) transition(id string, e *backendEntry, next State) {
	if e.state == next {
		return
	}
	e.state = next
	snapshot := BackendState{ID: id, State: next, LastChecked: e.lastChecked, LastError: e.lastErr}
	for _, l := range m.listeners {
		l(snapshot)
	}
}
