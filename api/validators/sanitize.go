package validators

import "strings"

// SanitizeString trims whitespace and truncates to maxLen runes. Truncation
// is rune-aware so multibyte names are never cut mid-character.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return trimmed
}
