package mysql

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

// Save inserts an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO requirement_analyses
  (id, tenant_id, requirement_id, fingerprint, result_json, cached, duration_ms, created_at)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  tenant_id=VALUES(tenant_id), requirement_id=VALUES(requirement_id), fingerprint=VALUES(fingerprint),
  result_json=VALUES(result_json), cached=VALUES(cached), duration_ms=VALUES(duration_ms);
`
	// Ensure non-nullable fields have safe defaults
	tenant := stringOrDash(a.TenantID)
	reqID := stringOrDash(a.RequirementID)
	result := a.ResultJSON
	if strings.TrimSpace(result) == "" {
		// result_json column requires valid JSON; use empty object
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
WHERE tenant_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
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
WHERE tenant_id=? AND requirement_id=?
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
