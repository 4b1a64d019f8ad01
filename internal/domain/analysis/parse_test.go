package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
  "score": 3.5,
  "issues": [
    {"category": "Clarity", "severity": "High", "description": "No measurable criterion"}
  ],
  "improved_text": "The system shall respond within 2 seconds under nominal load.",
  "recommendations": [
    {"description": "Quantify the performance target", "suggested_edit": "respond within 2 seconds"}
  ],
  "hallucination_detected": false
}`

func TestParseResult_Valid(t *testing.T) {
	res, err := ParseResult(validPayload)
	require.NoError(t, err)
	assert.Equal(t, 3.5, res.Score)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, CategoryClarity, res.Issues[0].Category)
	assert.Equal(t, SeverityHigh, res.Issues[0].Severity, "severity is normalized to lowercase")
	assert.False(t, res.Hallucination)
	assert.False(t, res.Untrusted)
}

func TestParseResult_StripsCodeFences(t *testing.T) {
	res, err := ParseResult("```json\n" + validPayload + "\n```")
	require.NoError(t, err)
	assert.Equal(t, 3.5, res.Score)
}

func TestParseResult_NotJSON(t *testing.T) {
	_, err := ParseResult("I think this requirement is fine.")
	assert.Error(t, err)
}

func TestParseResult_MissingScore(t *testing.T) {
	_, err := ParseResult(`{"issues":[],"hallucination_detected":false}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "score")
}

func TestParseResult_ScoreOutOfRange(t *testing.T) {
	_, err := ParseResult(`{"score":11,"issues":[],"hallucination_detected":false}`)
	assert.Error(t, err)
}

func TestParseResult_MissingHallucinationFlag(t *testing.T) {
	_, err := ParseResult(`{"score":5,"issues":[]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hallucination_detected")
}

func TestParseResult_BadSeverity(t *testing.T) {
	_, err := ParseResult(`{"score":5,"issues":[{"category":"Clarity","severity":"catastrophic","description":"x"}],"hallucination_detected":false}`)
	assert.Error(t, err)
}

func TestParseResult_HallucinationMarksUntrusted(t *testing.T) {
	res, err := ParseResult(`{"score":7,"issues":[],"hallucination_detected":true}`)
	require.NoError(t, err)
	assert.True(t, res.Hallucination)
	assert.True(t, res.Untrusted, "flagged output is returned but never trusted")
}
