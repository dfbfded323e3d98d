package form

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/formcraft/internal/errors"
)

// Limits on form details.
const (
	MinNameChars        = 4
	MaxNameChars        = 100
	MaxDescriptionChars = 500
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName trims a form name and collapses internal whitespace.
// Case is preserved.
func NormalizeName(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// ValidateDetails normalizes and checks a form's name and description.
func ValidateDetails(name, description string) (string, string, error) {
	name = NormalizeName(name)
	description = strings.TrimSpace(description)

	problems := make(map[string]string)
	if n := CountChars(name); n < MinNameChars {
		problems["name"] = fmt.Sprintf("must be at least %d characters", MinNameChars)
	} else if n > MaxNameChars {
		problems["name"] = fmt.Sprintf("must be at most %d characters", MaxNameChars)
	}
	if CountChars(description) > MaxDescriptionChars {
		problems["description"] = fmt.Sprintf("must be at most %d characters", MaxDescriptionChars)
	}
	if len(problems) > 0 {
		return "", "", errors.NewValidation(problems)
	}
	return name, description, nil
}

// SanitizeForFilename converts a form name into a safe file name stem.
func SanitizeForFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(NormalizeName(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "form"
	}
	return out
}
