package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidateBatchID validates batch ID format
func ValidateBatchID(id string) error {
	if id == "" {
		return fmt.Errorf("batch ID cannot be empty")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid batch ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateItemID validates item ID format
func ValidateItemID(id string) error {
	if id == "" {
		return fmt.Errorf("item ID cannot be empty")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid item ID format")
	}
	return nil
}

// ValidateFileName rejects empty names and path tricks in uploaded files.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("file name too long (max 255 chars)")
	}
	// Block path traversal and control characters
	dangerous := []string{"..", "/", "\\", "\x00", "\n", "\r"}
	for _, d := range dangerous {
		if strings.Contains(name, d) {
			return fmt.Errorf("invalid characters in file name")
		}
	}
	return nil
}

// ValidateItemStatus checks the status is one of the moderation states.
func ValidateItemStatus(status string) error {
	allowed := map[string]bool{
		"pending":         true,
		"approved":        true,
		"rejected":        true,
		"revision_needed": true,
	}
	if !allowed[strings.ToLower(status)] {
		return fmt.Errorf("invalid status: %s (allowed: pending, approved, rejected, revision_needed)", status)
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

// ValidateSearchTerm caps the term length; matching itself is substring only.
func ValidateSearchTerm(term string) (string, error) {
	term = SanitizeString(term)
	if len(term) > 200 {
		return "", fmt.Errorf("search term too long (max 200 chars)")
	}
	return term, nil
}
