package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/reqanalyzer/internal/domain/faults"
)

type FaultRepository struct {
	db *sql.DB
}

func NewFaultRepository(db *sql.DB) *FaultRepository {
	return &FaultRepository{db: db}
}

// Save appends one analysis failure entry
func (r *FaultRepository) Save(ctx context.Context, f *domain.Fault) error {
	const q = `
INSERT INTO analysis_faults
  (tenant_id, requirement_id, fingerprint, stage, kind, message, raw_preview, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);
`
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		stringOrDash(f.TenantID), stringOrDash(f.RequirementID), f.Fingerprint,
		f.Stage, f.Kind, f.Message, f.RawPreview, createdAt)
	return err
}

// ListByRequirement returns recent failures for one requirement
func (r *FaultRepository) ListByRequirement(ctx context.Context, tenant string, requirementID string, limit int) ([]*domain.Fault, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, requirement_id, fingerprint, stage, kind, message, raw_preview, created_at
FROM analysis_faults
WHERE tenant_id=$1 AND requirement_id=$2
ORDER BY created_at DESC, id DESC
LIMIT $3;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, requirementID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Fault
	for rows.Next() {
		var f domain.Fault
		if err := rows.Scan(&f.ID, &f.TenantID, &f.RequirementID, &f.Fingerprint, &f.Stage, &f.Kind, &f.Message, &f.RawPreview, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
