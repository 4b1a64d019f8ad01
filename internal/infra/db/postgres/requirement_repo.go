package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	domain "github.com/bryanwahyu/reqanalyzer/internal/domain/analysis"
)

// RequirementRepository reads requirement contexts from the requirements table.
type RequirementRepository struct {
	db *sql.DB
}

func NewRequirementRepository(db *sql.DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

// Get loads one requirement context, or nil when it does not exist.
func (r *RequirementRepository) Get(ctx context.Context, tenant string, id string) (*domain.RequirementContext, error) {
	const q = `
SELECT id, body, supplemental_tables, supplemental_paragraphs
FROM requirements
WHERE tenant_id=$1 AND id=$2;
`
	var rc domain.RequirementContext
	var tablesJSON, parasJSON sql.NullString
	err := r.db.QueryRowContext(ctx, q, tenant, id).Scan(&rc.ID, &rc.Text, &tablesJSON, &parasJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if tablesJSON.Valid && tablesJSON.String != "" {
		if err := json.Unmarshal([]byte(tablesJSON.String), &rc.Tables); err != nil {
			return nil, fmt.Errorf("requirement %s: bad supplemental_tables: %w", id, err)
		}
	}
	if parasJSON.Valid && parasJSON.String != "" {
		if err := json.Unmarshal([]byte(parasJSON.String), &rc.Paragraphs); err != nil {
			return nil, fmt.Errorf("requirement %s: bad supplemental_paragraphs: %w", id, err)
		}
	}
	return &rc, nil
}
