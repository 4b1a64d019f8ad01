package analysis

import "context"

// RequirementSource port (interface for the persistence layer supplying
// requirement text and supplemental data)
type RequirementSource interface {
	Get(ctx context.Context, tenant string, id string) (*RequirementContext, error)
}

// Repository port for persisting and querying finished analyses
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*Record, error)
	LatestByRequirement(ctx context.Context, tenant string, requirementID string) (*Record, error)
}

// ResultCache port (interface for the content-addressed result cache)
type ResultCache interface {
	TryGet(fingerprint string) (*Result, bool)
	Store(fingerprint string, r *Result)
	Clear()
}
