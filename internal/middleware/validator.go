package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

var customerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateCustomerID validates customer ID format
func ValidateCustomerID(id string) error {
	if id == "" {
		return fmt.Errorf("customer ID cannot be empty")
	}
	if !customerIDPattern.MatchString(id) {
		return fmt.Errorf("invalid customer ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
