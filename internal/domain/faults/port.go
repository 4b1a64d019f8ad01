package faults

import (
	"context"
)

// Repository defines persistence for analysis failures
type Repository interface {
	Save(ctx context.Context, f *Fault) error
	ListByRequirement(ctx context.Context, tenant string, requirementID string, limit int) ([]*Fault, error)
}
