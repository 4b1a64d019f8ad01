package ai

import "context"

// GenerateOptions tunes one generation call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	// RepairPass marks the schema-repair retry so clients can tighten output.
	RepairPass bool
}

// Generator is the single handle the orchestrator holds for text generation,
// regardless of whether it is backed by the RAG workspace, a direct model
// endpoint, or the offline stub. The health monitor decides which one.
type Generator interface {
	// ID names the backend ("rag", "direct", "stub") for logs and metrics.
	ID() string
	// Probe checks reachability with a short deadline.
	Probe(ctx context.Context) error
	// Generate produces the model response for a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
