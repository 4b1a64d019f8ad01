package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawResult mirrors the JSON schema the backend is instructed to produce.
// Score and the hallucination flag are pointers so that a missing field can
// be told apart from a zero value during validation.
type rawResult struct {
	Score           *float64         `json:"score"`
	Issues          []Issue          `json:"issues"`
	ImprovedText    string           `json:"improved_text"`
	Recommendations []Recommendation `json:"recommendations"`
	Hallucination   *bool            `json:"hallucination_detected"`
}

var validSeverities = map[Severity]bool{
	SeverityCritical: true,
	SeverityHigh:     true,
	SeverityMedium:   true,
	SeverityLow:      true,
	SeverityInfo:     true,
}

// ParseResult validates a backend response against the analysis schema and
// converts it into a Result. The error describes the first violation found;
// callers use it to drive the repair pass.
func ParseResult(raw string) (*Result, error) {
	// Models occasionally wrap JSON in code fences despite instructions.
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var rr rawResult
	if err := json.Unmarshal([]byte(cleaned), &rr); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if rr.Score == nil {
		return nil, fmt.Errorf("missing required field: score")
	}
	if *rr.Score < 0 || *rr.Score > ScoreMax {
		return nil, fmt.Errorf("score %v out of range [0,%v]", *rr.Score, ScoreMax)
	}
	if rr.Hallucination == nil {
		return nil, fmt.Errorf("missing required field: hallucination_detected")
	}
	for i, is := range rr.Issues {
		if strings.TrimSpace(is.Category) == "" {
			return nil, fmt.Errorf("issue %d: empty category", i)
		}
		if strings.TrimSpace(is.Description) == "" {
			return nil, fmt.Errorf("issue %d: empty description", i)
		}
		if !validSeverities[Severity(strings.ToLower(string(is.Severity)))] {
			return nil, fmt.Errorf("issue %d: invalid severity %q", i, is.Severity)
		}
	}

	res := &Result{
		Score:           *rr.Score,
		Issues:          make([]Issue, 0, len(rr.Issues)),
		ImprovedText:    rr.ImprovedText,
		Recommendations: rr.Recommendations,
		Hallucination:   *rr.Hallucination,
	}
	for _, is := range rr.Issues {
		is.Severity = Severity(strings.ToLower(string(is.Severity)))
		res.Issues = append(res.Issues, is)
	}
	// Flagged output is kept but must never pass as trustworthy.
	if res.Hallucination {
		res.Untrusted = true
	}
	return res, nil
}
