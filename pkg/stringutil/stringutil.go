// Package stringutil holds small string helpers for terminal output.
package stringutil

import "strings"

// Ellipsis flattens s onto one line and shortens it to maxLength bytes,
// ending in "..." when it was cut. With maxLength <= 3 there is no room for
// the marker and s is simply cut.
func Ellipsis(s string, maxLength int) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")

	if maxLength < 0 {
		return ""
	}
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return s[:maxLength]
	}
	return s[:maxLength-3] + "..."
}
