package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/reqanalyzer/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts or updates an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO requirement_analyses
  (id, tenant_id, requirement_id, fingerprint, result_json, cached, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  tenant_id=EXCLUDED.tenant_id,
  requirement_id=EXCLUDED.requirement_id,
  fingerprint=EXCLUDED.fingerprint,
  result_json=EXCLUDED.result_json,
  cached=EXCLUDED.cached,
  duration_ms=EXCLUDED.duration_ms;
`
	tenant := stringOrDash(a.TenantID)
	reqID := stringOrDash(a.RequirementID)
	result := a.ResultJSON
	if strings.TrimSpace(result) == "" {
		result = "{}"
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, a.ID, tenant, reqID, a.Fingerprint, result, a.Cached, a.DurationMS, createdAt)
	return err
}

// Paginate returns a page of analysis records ordered by created_at desc
func (r *AnalysisRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Record, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, tenant_id, requirement_id, fingerprint, result_json, cached, duration_ms, created_at
FROM requirement_analyses
WHERE tenant_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var a domain.Record
		if err := rows.Scan(&a.ID, &a.TenantID, &a.RequirementID, &a.Fingerprint, &a.ResultJSON, &a.Cached, &a.DurationMS, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// LatestByRequirement returns the most recent analysis for one requirement
func (r *AnalysisRepository) LatestByRequirement(ctx context.Context, tenant string, requirementID string) (*domain.Record, error) {
	const q = `
SELECT id, tenant_id, requirement_id, fingerprint, result_json, cached, duration_ms, created_at
FROM requirement_analyses
WHERE tenant_id=$1 AND requirement_id=$2
ORDER BY created_at DESC, id DESC
LIMIT 1;
`
	var a domain.Record
	err := r.db.QueryRowContext(ctx, q, tenant, requirementID).
		Scan(&a.ID, &a.TenantID, &a.RequirementID, &a.Fingerprint, &a.ResultJSON, &a.Cached, &a.DurationMS, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
