package rag

import "time"

// WorkspaceParams are the generation parameters applied to a workspace.
type WorkspaceParams struct {
	Temperature         float64 `json:"temperature" yaml:"temperature"`
	TopN                int     `json:"top_n" yaml:"topN"`
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarityThreshold"`
	HistoryWindow       int     `json:"history_window" yaml:"historyWindow"`
}

// ReferenceDocument is one document synced into a workspace reference set.
type ReferenceDocument struct {
	Name     string
	Content  []byte
	Modified time.Time
}

// RequestRecord is one append-only entry in the workspace request log.
type RequestRecord struct {
	Timestamp       time.Time     `json:"timestamp"`
	WorkspaceID     string        `json:"workspace_id"`
	PromptPreview   string        `json:"prompt_preview"`
	ResponsePreview string        `json:"response_preview"`
	Success         bool          `json:"success"`
	Duration        time.Duration `json:"duration"`
}

// DocumentUsageStat accumulates retrieval counters for one reference document.
// Counters only grow; RelevanceRatio is derived.
type DocumentUsageStat struct {
	Name           string  `json:"name"`
	Retrievals     int     `json:"retrievals"`
	Relevant       int     `json:"relevant"`
	RelevanceRatio float64 `json:"relevance_ratio"`
}

// WorkspaceSummary aggregates the request log for one workspace.
type WorkspaceSummary struct {
	WorkspaceID        string              `json:"workspace_id"`
	TotalRequests      int                 `json:"total_requests"`
	SuccessfulRequests int                 `json:"successful_requests"`
	OverallSuccessRate float64             `json:"overall_success_rate"` // percent
	AverageDuration    time.Duration       `json:"average_duration"`
	LastSync           time.Time           `json:"last_sync"`
	Documents          []DocumentUsageStat `json:"documents"`
}
