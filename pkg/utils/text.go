// Package utils provides shared helpers for logging, vector math and display text.
package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen runes, appending "..." when it cuts.
// Transcripts are UTF-8, so the cut never splits a character. A non-positive maxLen returns s.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
