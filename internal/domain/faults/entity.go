package faults

import "time"

// Fault represents a persisted analysis failure entry
type Fault struct {
	ID            int64     `json:"id"`
	TenantID      string    `json:"tenant_id"`
	RequirementID string    `json:"requirement_id"`
	Fingerprint   string    `json:"fingerprint,omitempty"`
	Stage         string    `json:"stage,omitempty"` // dispatch | repair | fallback
	Kind          string    `json:"kind"`
	Message       string    `json:"message"`
	RawPreview    string    `json:"raw_preview,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
