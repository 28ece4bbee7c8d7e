package utils

import "strings"

// TruncateForLog renders s as a single-line preview of at most limit runes. Runs of whitespace,
// including the newlines of prompts and profile texts, collapse into one space. An ellipsis marks
// a cut.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
