package prompt

import (
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/reqanalyzer/internal/domain/analysis"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior requirements engineer. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- score is a number from 0 to 10 rating overall requirement quality.
- Use lowercase severity values: critical, high, medium, low, info.
- issues is an array of objects; each needs category, severity, and description. Categories: Clarity, Completeness, Verifiability, Atomicity, Consistency.
- improved_text is a rewritten version of the requirement fixing the issues; keep the original intent.
- hallucination_detected must be present: set it to true if your analysis references facts that are absent from the supplied requirement and context.

Schema (example with empty values):
{
  "score": 0,
  "issues": [
    {
      "category": "<Clarity|Completeness|Verifiability|Atomicity|Consistency>",
      "severity": "<critical|high|medium|low|info>",
      "description": "<string>"
    }
  ],
  "improved_text": "<string>",
  "recommendations": [
    {
      "description": "<string>",
      "suggested_edit": "<string>"
    }
  ],
  "hallucination_detected": false
}`
}

// GetUserPrompt renders the requirement plus its supplemental tables and
// paragraphs into the user message. The "Requirement:" marker is load-bearing:
// the offline stub extracts the text behind it.
func GetUserPrompt(rc domain.RequirementContext) string {
	var b strings.Builder
	b.WriteString("Analyze the following requirement and respond with the JSON per schema.\n\n")
	b.WriteString("Requirement:\n")
	b.WriteString(strings.TrimSpace(rc.Text))
	b.WriteString("\n")

	for _, t := range rc.Tables {
		b.WriteString("\nTable")
		if t.Name != "" {
			fmt.Fprintf(&b, " %q", t.Name)
		}
		b.WriteString(":\n")
		b.WriteString(strings.Join(t.Columns, " | "))
		b.WriteString("\n")
		for _, row := range t.Rows {
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
	}

	for i, p := range rc.Paragraphs {
		fmt.Fprintf(&b, "\nContext paragraph %d:\n%s\n", i+1, strings.TrimSpace(p))
	}
	return b.String()
}

// GetRepairPrompt wraps a malformed payload with an explicit schema-repair
// instruction for the single repair pass.
func GetRepairPrompt(malformed string, parseErr error) string {
	return fmt.Sprintf(`Your previous response did not match the required JSON schema.
Problem: %v

Return the corrected payload as one valid JSON object per the schema you were given. Do not add commentary or code fences. Previous response:

%s`, parseErr, malformed)
}
