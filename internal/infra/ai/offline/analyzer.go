package offline

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/bryanwahyu/reqanalyzer/internal/domain/ai"
	domain "github.com/bryanwahyu/reqanalyzer/internal/domain/analysis"
)

// Stub is the deterministic generator the health monitor hands out when no
// backend is reachable. It never fails and never talks to the network: the
// payload is built locally from lightweight requirement heuristics and is
// always marked as a degraded, untrusted result.
type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (*Stub) ID() string { return "stub" }

// Probe always succeeds; the stub is the thing we degrade to.
func (*Stub) Probe(ctx context.Context) error { return nil }

// Generate returns a schema-valid JSON payload flagging the backend as
// unavailable, enriched with offline heuristic findings so the caller still
// sees something actionable. Same prompt in, same payload out.
func (*Stub) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	res := AnalyzeRequirement(extractRequirement(prompt))
	b, err := json.Marshal(res)
	if err != nil {
		// Static minimal payload; keeps the no-fail contract.
		return `{"score":0,"issues":[{"category":"Availability","severity":"info","description":"analysis backend unavailable"}],"recommendations":[],"hallucination_detected":false}`, nil
	}
	return string(b), nil
}

// requirementMarker matches the requirement section the prompt builder emits.
var requirementMarker = regexp.MustCompile(`(?s)Requirement:\n(.*?)(\n\n|\z)`)

func extractRequirement(prompt string) string {
	if m := requirementMarker.FindStringSubmatch(prompt); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(prompt)
}

// Weak-word detectors for offline requirement linting. Each hit costs one
// point off the heuristic score.
var detectors = []struct {
	re       *regexp.Regexp
	category string
	severity domain.Severity
	desc     string
}{
	{regexp.MustCompile(`(?i)\b(adequate|appropriate|sufficient|reasonable|acceptable)\b`), domain.CategoryClarity, domain.SeverityHigh,
		"Vague qualifier with no measurable criterion"},
	{regexp.MustCompile(`(?i)\b(fast|quick|slow|user[- ]friendly|easy|simple|efficient|flexible|robust)\b`), domain.CategoryVerifiability, domain.SeverityHigh,
		"Subjective adjective cannot be verified by test"},
	{regexp.MustCompile(`(?i)\b(etc\.?|and so on|and/or|as needed|if necessary|where applicable)\b`), domain.CategoryCompleteness, domain.SeverityMedium,
		"Open-ended phrase leaves scope undefined"},
	{regexp.MustCompile(`(?i)\b(should|may|might|could)\b`), domain.CategoryClarity, domain.SeverityMedium,
		"Non-binding modal verb; use 'shall' for mandatory behavior"},
	{regexp.MustCompile(`(?i)\b(it|they|this|these)\b\s+(is|are|will|shall)`), domain.CategoryClarity, domain.SeverityLow,
		"Pronoun with unclear antecedent"},
	{regexp.MustCompile(`(?i)\band\b.*\band\b.*\band\b`), domain.CategoryAtomicity, domain.SeverityLow,
		"Possibly compound requirement; consider splitting"},
}

// AnalyzeRequirement runs the offline weak-word lint and wraps the findings
// in the analysis result schema. The result is always untrusted: it stands in
// for a real model, it does not replace one.
func AnalyzeRequirement(text string) *domain.Result {
	res := &domain.Result{
		Score:         0,
		Hallucination: false,
		Untrusted:     true,
		Issues: []domain.Issue{{
			Category:    "Availability",
			Severity:    domain.SeverityInfo,
			Description: "Analysis backend unavailable; heuristic offline result only",
		}},
		Recommendations: []domain.Recommendation{{
			Description: "Re-run the analysis once the language-model backend is reachable",
		}},
	}
	if strings.TrimSpace(text) == "" {
		return res
	}

	score := domain.ScoreMax
	seen := map[string]bool{}
	for _, d := range detectors {
		if !d.re.MatchString(text) {
			continue
		}
		if seen[d.desc] {
			continue
		}
		seen[d.desc] = true
		match := d.re.FindString(text)
		res.Issues = append(res.Issues, domain.Issue{
			Category:    d.category,
			Severity:    d.severity,
			Description: d.desc + ": \"" + strings.TrimSpace(match) + "\"",
		})
		score -= 1.0
	}
	if score < 0 {
		score = 0
	}
	// Heuristic results top out well below a clean model score.
	if score > 5 {
		score = 5
	}
	res.Score = score
	return res
}
