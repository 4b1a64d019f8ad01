package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/reqanalyzer/internal/domain/ai"
)

// fakeGenerator scripts probe outcomes and counts calls.
type fakeGenerator struct {
	id            string
	probeErr      error
	probeCalls    int
	generateCalls int
}

func (f *fakeGenerator) ID() string { return f.id }

func (f *fakeGenerator) Probe(ctx context.Context) error {
	f.probeCalls++
	return f.probeErr
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	f.generateCalls++
	return `{"score":5,"issues":[],"hallucination_detected":false}`, nil
}

// fakeClock lets tests move through cooldown windows.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestMonitor(gen *fakeGenerator, clk *fakeClock) *Monitor {
	return NewMonitor(
		map[string]ai.Generator{gen.id: gen},
		WithClock(clk),
		WithProbeTimeout(time.Second),
		WithCooldown(10*time.Second, time.Minute),
	)
}

func TestActiveGenerator_HealthyBackend(t *testing.T) {
	gen := &fakeGenerator{id: "rag"}
	m := newTestMonitor(gen, &fakeClock{now: time.Now()})

	got := m.ActiveGenerator(context.Background(), "rag")
	assert.Equal(t, "rag", got.ID())
	assert.Equal(t, 1, gen.probeCalls)
}

func TestActiveGenerator_UnhealthyReturnsStub(t *testing.T) {
	gen := &fakeGenerator{id: "rag", probeErr: errors.New("connection refused")}
	m := newTestMonitor(gen, &fakeClock{now: time.Now()})

	got := m.ActiveGenerator(context.Background(), "rag")
	assert.Equal(t, "stub", got.ID())
	assert.Zero(t, gen.generateCalls, "unhealthy backend must never receive generate calls")

	// The stub itself always works.
	out, err := got.Generate(context.Background(), "Requirement:\nThe system shall work.\n", ai.GenerateOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "hallucination_detected")
}

func TestActiveGenerator_UnknownBackendReturnsStub(t *testing.T) {
	m := NewMonitor(nil)
	got := m.ActiveGenerator(context.Background(), "nope")
	assert.Equal(t, "stub", got.ID())
}

func TestActiveGenerator_CooldownSkipsProbe(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	gen := &fakeGenerator{id: "rag", probeErr: errors.New("down")}
	m := newTestMonitor(gen, clk)

	// Two failures mark the backend unavailable and start the cooldown.
	m.ActiveGenerator(context.Background(), "rag")
	m.ActiveGenerator(context.Background(), "rag")
	probesSoFar := gen.probeCalls

	// Within the window the monitor degrades without re-probing.
	clk.now = clk.now.Add(time.Second)
	got := m.ActiveGenerator(context.Background(), "rag")
	assert.Equal(t, "stub", got.ID())
	assert.Equal(t, probesSoFar, gen.probeCalls, "no probe during cooldown")
}

func TestActiveGenerator_RecoversAfterCooldown(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	gen := &fakeGenerator{id: "rag", probeErr: errors.New("down")}
	m := newTestMonitor(gen, clk)

	m.ActiveGenerator(context.Background(), "rag")
	m.ActiveGenerator(context.Background(), "rag")

	// Backend comes back; step past the cooldown window.
	gen.probeErr = nil
	clk.now = clk.now.Add(2 * time.Minute)

	got := m.ActiveGenerator(context.Background(), "rag")
	assert.Equal(t, "rag", got.ID())

	states := m.States()
	require.Len(t, states, 1)
	assert.Equal(t, StateHealthy, states[0].State)
}

func TestMonitor_StateTransitionsObservable(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	gen := &fakeGenerator{id: "rag", probeErr: errors.New("down")}
	m := newTestMonitor(gen, clk)

	var seen []State
	m.Subscribe(func(s BackendState) { seen = append(seen, s.State) })

	m.ActiveGenerator(context.Background(), "rag") // healthy -> degraded
	m.ActiveGenerator(context.Background(), "rag") // degraded -> unavailable
	gen.probeErr = nil
	clk.now = clk.now.Add(5 * time.Minute)
	m.ActiveGenerator(context.Background(), "rag") // unavailable -> healthy

	assert.Equal(t, []State{StateDegraded, StateUnavailable, StateHealthy}, seen)
}

func TestReportFailure_DemotesBackend(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	gen := &fakeGenerator{id: "rag"}
	m := newTestMonitor(gen, clk)

	m.ReportFailure("rag", errors.New("mid-request failure"))

	states := m.States()
	require.Len(t, states, 1)
	assert.Equal(t, StateUnavailable, states[0].State)

	// Cooldown applies: next call degrades without probing.
	probes := gen.probeCalls
	got := m.ActiveGenerator(context.Background(), "rag")
	assert.Equal(t, "stub", got.ID())
	assert.Equal(t, probes, gen.probeCalls)
}
