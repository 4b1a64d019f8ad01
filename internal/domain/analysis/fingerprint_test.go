package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_IdenticalContexts(t *testing.T) {
	a := RequirementContext{
		ID:   "REQ-1",
		Text: "The system shall log every login attempt.",
		Tables: []SupplementalTable{{
			Name:    "events",
			Columns: []string{"event", "retention"},
			Rows:    [][]string{{"login", "90d"}, {"logout", "30d"}},
		}},
		Paragraphs: []string{"Applies to all tenants."},
	}
	b := a
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_IgnoresFormattingOnlyEdits(t *testing.T) {
	a := RequirementContext{Text: "The system   shall respond\nwithin 2 seconds."}
	b := RequirementContext{Text: "  the system shall respond within 2 seconds. "}
	assert.Equal(t, Fingerprint(a), Fingerprint(b),
		"whitespace and case differences must not change the fingerprint")
}

func TestFingerprint_DifferentTextDiffers(t *testing.T) {
	a := RequirementContext{Text: "The system shall respond within 2 seconds."}
	b := RequirementContext{Text: "The system shall respond within 3 seconds."}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_RowOrderIsSignificant(t *testing.T) {
	mk := func(rows [][]string) RequirementContext {
		return RequirementContext{
			Text:   "The system shall process steps in order.",
			Tables: []SupplementalTable{{Name: "steps", Columns: []string{"step"}, Rows: rows}},
		}
	}
	a := mk([][]string{{"validate"}, {"persist"}})
	b := mk([][]string{{"persist"}, {"validate"}})
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b),
		"row order carries meaning and must be part of the identity")
}

func TestFingerprint_ParagraphOrderIsSignificant(t *testing.T) {
	a := RequirementContext{Text: "x", Paragraphs: []string{"first", "second"}}
	b := RequirementContext{Text: "x", Paragraphs: []string{"second", "first"}}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_SectionBoundariesUnambiguous(t *testing.T) {
	// Content must not be able to shift across field boundaries.
	a := RequirementContext{Text: "ab", Paragraphs: []string{"c"}}
	b := RequirementContext{Text: "a", Paragraphs: []string{"bc"}}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
