package utils

import "strings"

// Truncate shortens s to at most maxLen runes, marking the cut with "…".
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

// CollapseSpace trims s and replaces every run of whitespace with a single
// space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
