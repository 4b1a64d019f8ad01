package analysis

import (
	"time"
)

// AnalysisID identifier type
type AnalysisID string

// Severity enum for issues found in a requirement
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Issue categories aligned with the analysis prompt schema
const (
	CategoryClarity       = "Clarity"
	CategoryCompleteness  = "Completeness"
	CategoryVerifiability = "Verifiability"
	CategoryAtomicity     = "Atomicity"
	CategoryConsistency   = "Consistency"
)

// SupplementalTable is an ordered table attached to a requirement.
// Row order is preserved and significant: it feeds the fingerprint as-is.
type SupplementalTable struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// RequirementContext is the immutable input of one analysis: the requirement
// text plus optional supplemental tables and paragraphs pulled from the
// requirement source.
type RequirementContext struct {
	ID         string              `json:"id"`
	Text       string              `json:"text"`
	Tables     []SupplementalTable `json:"tables,omitempty"`
	Paragraphs []string            `json:"paragraphs,omitempty"`
}

// Issue is one quality defect found in the requirement
type Issue struct {
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Recommendation is an actionable suggestion, optionally with a concrete edit
type Recommendation struct {
	Description   string `json:"description"`
	SuggestedEdit string `json:"suggested_edit,omitempty"`
}

// Result is the structured quality assessment of one requirement.
// Immutable once produced; re-analysis of changed content yields a new
// Result under a new fingerprint.
type Result struct {
	Score           float64          `json:"score"` // 0..10
	Issues          []Issue          `json:"issues"`
	ImprovedText    string           `json:"improved_text,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	// Hallucination is true when the model flagged facts absent from the input.
	Hallucination bool `json:"hallucination_detected"`
	// Untrusted marks results that must not be taken at face value:
	// hallucination-flagged output or the offline stub payload.
	Untrusted bool `json:"untrusted,omitempty"`
}

// ScoreMax bounds the quality score accepted from a backend.
const ScoreMax = 10.0

// Record is a persisted analysis kept for audit and history queries.
type Record struct {
	ID            AnalysisID `json:"id"`
	TenantID      string     `json:"tenant_id"`
	RequirementID string     `json:"requirement_id"`
	Fingerprint   string     `json:"fingerprint"`
	ResultJSON    string     `json:"result_json"`
	Cached        bool       `json:"cached"`
	DurationMS    int64      `json:"duration_ms"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Stage identifies where a request currently is in its lifecycle.
// Within one request stages only move forward.
type Stage string

const (
	StageQueued           Stage = "queued"
	StageCacheCheck       Stage = "cache_check"
	StageDispatch         Stage = "dispatch"
	StageAwaitingResponse Stage = "awaiting_response"
	StageRepairing        Stage = "repairing"
	StageFallback         Stage = "fallback"
	StageDone             Stage = "done"
)

// ProgressFunc reports stage transitions to interactive callers. May be nil.
type ProgressFunc func(stage Stage, detail string)
