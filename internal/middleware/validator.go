package middleware

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation and sanitization utilities

// maxRequirementLen bounds inline requirement text; anything bigger should
// come through the requirement source, not the request body.
const maxRequirementLen = 20000

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, tenant)
	if !matched {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// ValidateRequirementID validates requirement identifier format
func ValidateRequirementID(id string) error {
	if id == "" {
		return fmt.Errorf("requirement ID cannot be empty")
	}
	pattern := `^[a-zA-Z0-9._-]{1,128}$`
	matched, _ := regexp.MatchString(pattern, id)
	if !matched {
		return fmt.Errorf("invalid requirement ID format")
	}
	return nil
}

// ValidateWorkspaceID validates RAG workspace identifier format
func ValidateWorkspaceID(id string) error {
	if id == "" {
		return fmt.Errorf("workspace ID cannot be empty")
	}
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, id)
	if !matched {
		return fmt.Errorf("invalid workspace ID format")
	}
	return nil
}

// ValidateRequirementText bounds and sanity-checks inline requirement text.
// Emptiness is the orchestrator's concern; this only rejects oversized or
// non-UTF8 bodies before they reach a backend.
func ValidateRequirementText(text string) error {
	if len(text) > maxRequirementLen {
		return fmt.Errorf("requirement text exceeds %d bytes", maxRequirementLen)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("requirement text is not valid UTF-8")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage validates pagination page number
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
