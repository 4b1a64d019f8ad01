package analysis

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure that can cross the orchestrator boundary.
type ErrorKind string

const (
	// ErrKindValidation — empty or malformed input; no backend call was made.
	ErrKindValidation ErrorKind = "validation"
	// ErrKindBackendUnavailable — no healthy generator; degraded stub result.
	ErrKindBackendUnavailable ErrorKind = "backend_unavailable"
	// ErrKindMalformedResponse — schema validation failed after repair and fallback.
	ErrKindMalformedResponse ErrorKind = "malformed_response"
	// ErrKindTimeout — the generation or fallback ceiling was exceeded.
	ErrKindTimeout ErrorKind = "timeout"
)

// Error is the single typed error the analysis pipeline may return. RawPreview
// keeps a bounded slice of the offending backend output for debugging.
type Error struct {
	Kind       ErrorKind
	Message    string
	RawPreview string
}

func (e *Error) Error() string {
	if e.RawPreview != "" {
		return fmt.Sprintf("%s: %s (raw: %s)", e.Kind, e.Message, e.RawPreview)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a typed analysis error with a bounded raw-response preview.
func NewError(kind ErrorKind, msg, raw string) *Error {
	return &Error{Kind: kind, Message: msg, RawPreview: Preview(raw, 200)}
}

// IsKind reports whether err is an analysis Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// Preview truncates s for logs and error payloads.
func Preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
