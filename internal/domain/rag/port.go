package rag

import "context"

// WorkspaceClient port (interface for the workspace/document backend)
type WorkspaceClient interface {
	UploadDocuments(ctx context.Context, workspaceID string, docs []ReferenceDocument) error
	SetParameters(ctx context.Context, workspaceID string, params WorkspaceParams) error
	Chat(ctx context.Context, workspaceID string, message string) (string, error)
}

// DocumentSource port (interface for the store holding reference documents)
type DocumentSource interface {
	List(ctx context.Context) ([]ReferenceDocument, error)
	Fetch(ctx context.Context, name string) (ReferenceDocument, error)
}

// Tracker port consumed by the orchestrator
type Tracker interface {
	EnsureConfigured(ctx context.Context, workspaceID string, forceRefresh bool) bool
	TrackRequest(workspaceID, promptPreview, responsePreview string, success bool, durationMS int64)
	TrackDocumentUsage(documentName string, wasRelevant bool, contextPreview string)
}
