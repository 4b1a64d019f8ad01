package ragtracker

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bryanwahyu/reqanalyzer/internal/domain/rag"
)

// Thresholds driving the advisory recommendations.
const (
	lowSuccessRatePct = 50.0
	slowAverage       = 2 * time.Minute
)

// workspaceState is the per-workspace mutable state. All updates are
// append/increment-only, so one lock per workspace is enough.
type workspaceState struct {
	mu       sync.Mutex
	lastSync time.Time
	records  []rag.RequestRecord
	docs     map[string]*rag.DocumentUsageStat
}

// Tracker owns the workspace configuration state, the append-only request
// log, and the aggregated document-usage stats. It tunes workspaces through
// the WorkspaceClient and reads reference documents from the DocumentSource.
type Tracker struct {
	client rag.WorkspaceClient
	source rag.DocumentSource
	params rag.WorkspaceParams

	mu         sync.Mutex
	workspaces map[string]*workspaceState
}

func NewTracker(client rag.WorkspaceClient, source rag.DocumentSource, params rag.WorkspaceParams) *Tracker {
	return &Tracker{
		client:     client,
		source:     source,
		params:     params,
		workspaces: make(map[string]*workspaceState),
	}
}

func (t *Tracker) workspace(id string) *workspaceState {
	t.mu.Lock()
	defer t.mu.Unlock()
	ws, ok := t.workspaces[id]
	if !ok {
		ws = &workspaceState{docs: make(map[string]*rag.DocumentUsageStat)}
		t.workspaces[id] = ws
	}
	return ws
}

// EnsureConfigured idempotently syncs reference documents and parameters into
// the workspace. Documents are uploaded only when the source copy is newer
// than the last recorded sync, so repeated calls are cheap. The return value
// is advisory: false means the workspace could not be verified, which the
// caller treats as non-fatal and proceeds anyway.
func (t *Tracker) EnsureConfigured(ctx context.Context, workspaceID string, forceRefresh bool) bool {
	if workspaceID == "" {
		return false
	}
	ws := t.workspace(workspaceID)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	docs, err := t.source.List(ctx)
	if err != nil {
		log.Printf("ragtracker: list reference documents for %s: %v", workspaceID, err)
		return false
	}

	// Seed usage stats for everything in the reference set, so documents
	// that never show up in a retrieval surface in Recommendations.
	for _, d := range docs {
		t.RegisterDocument(d.Name)
	}

	var stale []rag.ReferenceDocument
	for _, d := range docs {
		if forceRefresh || ws.lastSync.IsZero() || d.Modified.After(ws.lastSync) {
			stale = append(stale, d)
		}
	}
	if len(stale) == 0 {
		return true
	}

	// Fetch content lazily; List may return metadata-only entries.
	for i, d := range stale {
		if len(d.Content) > 0 {
			continue
		}
		full, err := t.source.Fetch(ctx, d.Name)
		if err != nil {
			log.Printf("ragtracker: fetch %s: %v", d.Name, err)
			return false
		}
		stale[i] = full
	}

	if err := t.client.UploadDocuments(ctx, workspaceID, stale); err != nil {
		log.Printf("ragtracker: upload documents to %s: %v", workspaceID, err)
		return false
	}
	if err := t.client.SetParameters(ctx, workspaceID, t.params); err != nil {
		log.Printf("ragtracker: set parameters on %s: %v", workspaceID, err)
		return false
	}
	// Sync timestamp moves only after the full upload+configure succeeded,
	// so a cancelled run is safely retried from scratch.
	ws.lastSync = time.Now()
	return true
}

// TrackRequest appends one entry to the workspace request log. O(1) amortized.
func (t *Tracker) TrackRequest(workspaceID, promptPreview, responsePreview string, success bool, durationMS int64) {
	ws := t.workspace(workspaceID)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.records = append(ws.records, rag.RequestRecord{
		Timestamp:       time.Now(),
		WorkspaceID:     workspaceID,
		PromptPreview:   promptPreview,
		ResponsePreview: responsePreview,
		Success:         success,
		Duration:        time.Duration(durationMS) * time.Millisecond,
	})
}

// TrackDocumentUsage updates the running relevance ratio for one reference
// document. The tracker keys document stats globally: a document irrelevant
// everywhere is a stronger tuning signal than one irrelevant in a single
// workspace.
func (t *Tracker) TrackDocumentUsage(documentName string, wasRelevant bool, contextPreview string) {
	ws := t.workspace("") // global bucket for document stats
	ws.mu.Lock()
	defer ws.mu.Unlock()
	st, ok := ws.docs[documentName]
	if !ok {
		st = &rag.DocumentUsageStat{Name: documentName}
		ws.docs[documentName] = st
	}
	st.Retrievals++
	if wasRelevant {
		st.Relevant++
	}
	st.RelevanceRatio = float64(st.Relevant) / float64(st.Retrievals)
}

// Summary aggregates the request log for one workspace.
func (t *Tracker) Summary(workspaceID string) rag.WorkspaceSummary {
	ws := t.workspace(workspaceID)
	ws.mu.Lock()
	sum := rag.WorkspaceSummary{WorkspaceID: workspaceID, LastSync: ws.lastSync}
	var totalDur time.Duration
	for _, r := range ws.records {
		sum.TotalRequests++
		if r.Success {
			sum.SuccessfulRequests++
		}
		totalDur += r.Duration
	}
	if sum.TotalRequests > 0 {
		sum.OverallSuccessRate = float64(sum.SuccessfulRequests) / float64(sum.TotalRequests) * 100
		sum.AverageDuration = totalDur / time.Duration(sum.TotalRequests)
	}
	ws.mu.Unlock()

	sum.Documents = t.documentStats()
	return sum
}

func (t *Tracker) documentStats() []rag.DocumentUsageStat {
	ws := t.workspace("")
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := make([]rag.DocumentUsageStat, 0, len(ws.docs))
	for _, st := range ws.docs {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Recommendations derives advisory tuning hints from the aggregated metrics.
func (t *Tracker) Recommendations() []string {
	t.mu.Lock()
	ids := make([]string, 0, len(t.workspaces))
	for id := range t.workspaces {
		if id != "" {
			ids = append(ids, id)
		}
	}
	t.mu.Unlock()
	sort.Strings(ids)

	var recs []string
	for _, id := range ids {
		sum := t.Summary(id)
		if sum.TotalRequests == 0 {
			continue
		}
		if sum.OverallSuccessRate < lowSuccessRatePct {
			recs = append(recs, fmt.Sprintf(
				"workspace %s: success rate %.1f%% below %.0f%%; raise the request timeout or reduce batch size",
				id, sum.OverallSuccessRate, lowSuccessRatePct))
		}
		if sum.AverageDuration > slowAverage {
			recs = append(recs, fmt.Sprintf(
				"workspace %s: average duration %s exceeds %s; shrink the prompt or lower retrieved-document count",
				id, sum.AverageDuration.Round(time.Second), slowAverage))
		}
	}
	for _, st := range t.documentStats() {
		if st.Retrievals == 0 {
			recs = append(recs, fmt.Sprintf(
				"document %q was never retrieved; it may be irrelevant to this reference set", st.Name))
		}
	}
	return recs
}

// RegisterDocument seeds a zero-retrieval stat so unused reference documents
// show up in Recommendations.
func (t *Tracker) RegisterDocument(name string) {
	ws := t.workspace("")
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if _, ok := ws.docs[name]; !ok {
		ws.docs[name] = &rag.DocumentUsageStat{Name: name}
	}
}

// ExportText flushes the request log and stats to a human-readable report.
func (t *Tracker) ExportText() string {
	t.mu.Lock()
	ids := make([]string, 0, len(t.workspaces))
	for id := range t.workspaces {
		if id != "" {
			ids = append(ids, id)
		}
	}
	t.mu.Unlock()
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("RAG analytics export\n")
	b.WriteString("====================\n")
	for _, id := range ids {
		sum := t.Summary(id)
		fmt.Fprintf(&b, "\nworkspace %s: %d requests, %.1f%% success, avg %s\n",
			id, sum.TotalRequests, sum.OverallSuccessRate, sum.AverageDuration.Round(time.Millisecond))

		ws := t.workspace(id)
		ws.mu.Lock()
		for _, r := range ws.records {
			status := "ok"
			if !r.Success {
				status = "fail"
			}
			fmt.Fprintf(&b, "  %s [%s] %s -> %s (%s)\n",
				r.Timestamp.Format(time.RFC3339), status, r.PromptPreview, r.ResponsePreview, r.Duration.Round(time.Millisecond))
		}
		ws.mu.Unlock()
	}
	if docs := t.documentStats(); len(docs) > 0 {
		b.WriteString("\ndocuments:\n")
		for _, d := range docs {
			fmt.Fprintf(&b, "  %s: %d retrievals, %.0f%% relevant\n", d.Name, d.Retrievals, d.RelevanceRatio*100)
		}
	}
	for _, r := range t.Recommendations() {
		fmt.Fprintf(&b, "\nrecommendation: %s\n", r)
	}
	return b.String()
}
