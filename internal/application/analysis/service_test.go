package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/reqanalyzer/internal/domain/ai"
	domain "github.com/bryanwahyu/reqanalyzer/internal/domain/analysis"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/cache"
)

const validPayload = `{
  "score": 3.5,
  "issues": [
    {"category": "Clarity", "severity": "high", "description": "No measurable performance criterion"}
  ],
  "improved_text": "The system shall respond to user actions within 2 seconds under nominal load.",
  "recommendations": [
    {"description": "Quantify the performance target", "suggested_edit": "within 2 seconds"}
  ],
  "hallucination_detected": false
}`

const malformedPayload = `Sure! Here is my assessment: the requirement looks vague.`

// scriptedGen returns scripted responses in order and counts calls.
type scriptedGen struct {
	id         string
	responses  []string
	errs       []error
	calls      int
	onGenerate func()
}

func (g *scriptedGen) ID() string                     { return g.id }
func (g *scriptedGen) Probe(ctx context.Context) error { return nil }

func (g *scriptedGen) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	i := g.calls
	g.calls++
	if g.onGenerate != nil {
		g.onGenerate()
	}
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	resp := ""
	if i < len(g.responses) {
		resp = g.responses[i]
	} else if len(g.responses) > 0 {
		resp = g.responses[len(g.responses)-1]
	}
	return resp, err
}

// fakeHealth hands out fixed generators per backend id.
type fakeHealth struct {
	generators map[string]ai.Generator
	failures   []string
}

func (f *fakeHealth) ActiveGenerator(ctx context.Context, backendID string) ai.Generator {
	return f.generators[backendID]
}

func (f *fakeHealth) ReportFailure(backendID string, err error) {
	f.failures = append(f.failures, backendID)
}

// fakeTracker counts tracker interactions.
type fakeTracker struct {
	mu             sync.Mutex
	ensureCalls    int
	trackedCount   int
	trackedSuccess int
}

func (f *fakeTracker) EnsureConfigured(ctx context.Context, workspaceID string, forceRefresh bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCalls++
	return true
}

func (f *fakeTracker) TrackRequest(workspaceID, promptPreview, responsePreview string, success bool, durationMS int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trackedCount++
	if success {
		f.trackedSuccess++
	}
}

func (f *fakeTracker) TrackDocumentUsage(documentName string, wasRelevant bool, contextPreview string) {
}

func newTestService(rag, direct ai.Generator) (*Service, *fakeHealth, *fakeTracker, *cache.LRU) {
	h := &fakeHealth{generators: map[string]ai.Generator{BackendRAG: rag, BackendDirect: direct}}
	tr := &fakeTracker{}
	c := cache.NewLRU(16)
	svc := &Service{
		Cache:           c,
		Tracker:         tr,
		Health:          h,
		WorkspaceID:     "req-ws",
		GenerateTimeout: time.Second,
		FallbackCeiling: 2 * time.Second,
	}
	return svc, h, tr, c
}

func reqCtx(text string) domain.RequirementContext {
	return domain.RequirementContext{ID: "REQ-1", Text: text}
}

func TestAnalyze_EmptyInputShortCircuits(t *testing.T) {
	rag := &scriptedGen{id: "rag", responses: []string{validPayload}}
	direct := &scriptedGen{id: "direct", responses: []string{validPayload}}
	svc, _, tr, _ := newTestService(rag, direct)

	_, err := svc.Analyze(context.Background(), "t1", reqCtx("   \n\t "), nil)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindValidation))
	assert.Zero(t, rag.calls, "no backend call for empty input")
	assert.Zero(t, direct.calls)
	assert.Zero(t, tr.ensureCalls, "no workspace configuration for empty input")
}

func TestAnalyze_EndToEndWithCacheFastPath(t *testing.T) {
	rag := &scriptedGen{id: "rag", responses: []string{validPayload}}
	direct := &scriptedGen{id: "direct"}
	svc, _, _, _ := newTestService(rag, direct)

	first, err := svc.Analyze(context.Background(), "t1",
		reqCtx("The system shall provide adequate performance"), nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, first.Score, 5.0)
	require.NotEmpty(t, first.Issues)
	assert.Equal(t, domain.CategoryClarity, first.Issues[0].Category)
	assert.Equal(t, 1, rag.calls)

	// Semantically identical content: extra whitespace only.
	var stages []domain.Stage
	second, err := svc.Analyze(context.Background(), "t1",
		reqCtx("  The system  shall provide adequate   performance "),
		func(s domain.Stage, _ string) { stages = append(stages, s) })
	require.NoError(t, err)
	assert.Equal(t, first, second, "cached result is returned as-is")
	assert.Equal(t, 1, rag.calls, "second identical call must not hit the generator")
	assert.Zero(t, direct.calls)
	assert.Contains(t, stages, domain.StageCacheCheck)
	assert.NotContains(t, stages, domain.StageDispatch)
}

func TestAnalyze_RepairEscalation(t *testing.T) {
	rag := &scriptedGen{id: "rag", responses: []string{malformedPayload, validPayload}}
	direct := &scriptedGen{id: "direct", responses: []string{validPayload}}
	svc, _, _, _ := newTestService(rag, direct)

	var stages []domain.Stage
	res, err := svc.Analyze(context.Background(), "t1", reqCtx("The system shall work."),
		func(s domain.Stage, _ string) { stages = append(stages, s) })
	require.NoError(t, err)
	assert.Equal(t, 3.5, res.Score)
	assert.Equal(t, 2, rag.calls, "one dispatch plus one repair pass")
	assert.Zero(t, direct.calls, "fallback must not run when repair succeeds")
	assert.Contains(t, stages, domain.StageRepairing)
	assert.NotContains(t, stages, domain.StageFallback)
}

func TestAnalyze_FallbackEscalation(t *testing.T) {
	rag := &scriptedGen{id: "rag", responses: []string{malformedPayload, malformedPayload}}
	direct := &scriptedGen{id: "direct", responses: []string{validPayload}}
	svc, _, _, _ := newTestService(rag, direct)

	var stages []domain.Stage
	res, err := svc.Analyze(context.Background(), "t1", reqCtx("The system shall work."),
		func(s domain.Stage, _ string) { stages = append(stages, s) })
	require.NoError(t, err)
	assert.Equal(t, 3.5, res.Score)
	assert.Equal(t, 2, rag.calls)
	assert.Equal(t, 1, direct.calls, "fallback generator invoked exactly once")
	assert.Contains(t, stages, domain.StageFallback)
}

func TestAnalyze_ExhaustedRecoveryReturnsTypedError(t *testing.T) {
	rag := &scriptedGen{id: "rag", responses: []string{malformedPayload}}
	direct := &scriptedGen{id: "direct", responses: []string{malformedPayload}}
	svc, _, _, c := newTestService(rag, direct)

	_, err := svc.Analyze(context.Background(), "t1", reqCtx("The system shall work."), nil)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindMalformedResponse))

	var ae *domain.Error
	require.ErrorAs(t, err, &ae)
	assert.NotEmpty(t, ae.RawPreview, "failure must retain a raw-response preview")

	assert.Zero(t, c.Stats().Entries, "failed analyses are never cached")
}

func TestAnalyze_DispatchErrorSkipsRepair(t *testing.T) {
	rag := &scriptedGen{id: "rag", errs: []error{errors.New("connection reset")}}
	direct := &scriptedGen{id: "direct", responses: []string{validPayload}}
	svc, h, _, _ := newTestService(rag, direct)

	res, err := svc.Analyze(context.Background(), "t1", reqCtx("The system shall work."), nil)
	require.NoError(t, err)
	assert.Equal(t, 3.5, res.Score)
	assert.Equal(t, 1, rag.calls, "transport error has no payload to repair")
	assert.Equal(t, 1, direct.calls)
	assert.Contains(t, h.failures, BackendRAG)
}

func TestAnalyze_HallucinationFlagged(t *testing.T) {
	flagged := `{"score":8,"issues":[],"hallucination_detected":true}`
	rag := &scriptedGen{id: "rag", responses: []string{flagged}}
	direct := &scriptedGen{id: "direct"}
	svc, _, _, _ := newTestService(rag, direct)

	res, err := svc.Analyze(context.Background(), "t1", reqCtx("The system shall work."), nil)
	require.NoError(t, err)
	assert.True(t, res.Hallucination)
	assert.True(t, res.Untrusted, "flagged result is returned but marked untrusted")
}

func TestAnalyze_CancelledRequestDoesNotCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rag := &scriptedGen{id: "rag", responses: []string{validPayload}}
	// Cancel mid-flight, after dispatch started.
	rag.onGenerate = cancel
	direct := &scriptedGen{id: "direct", responses: []string{validPayload}}
	svc, _, _, c := newTestService(rag, direct)

	_, err := svc.Analyze(ctx, "t1", reqCtx("The system shall work."), nil)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindTimeout))
	assert.Zero(t, c.Stats().Entries, "a cancelled request must not write to the cache")
}

func TestAnalyze_TracksEveryDispatch(t *testing.T) {
	rag := &scriptedGen{id: "rag", responses: []string{malformedPayload, validPayload}}
	direct := &scriptedGen{id: "direct"}
	svc, _, tr, _ := newTestService(rag, direct)

	_, err := svc.Analyze(context.Background(), "t1", reqCtx("The system shall work."), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.ensureCalls)
	assert.Equal(t, 2, tr.trackedCount, "dispatch and repair both land in the request log")
}

func TestAnalyze_ConcurrentIdenticalRequestsRunOnce(t *testing.T) {
	block := make(chan struct{})
	rag := &scriptedGen{id: "rag", responses: []string{validPayload}}
	rag.onGenerate = func() { <-block }
	direct := &scriptedGen{id: "direct"}
	svc, _, _, _ := newTestService(rag, direct)

	rc := reqCtx("The system shall work.")
	var wg sync.WaitGroup
	results := make([]*domain.Result, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Analyze(context.Background(), "t1", rc, nil)
			require.NoError(t, err)
			results[i] = res
		}(i)
	}
	// Let both goroutines reach the pipeline, then release the leader.
	time.Sleep(100 * time.Millisecond)
	close(block)
	wg.Wait()

	assert.Equal(t, 1, rag.calls, "follower must reuse the leader's result")
	assert.Equal(t, results[0], results[1])
}
