// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the Unicode case-folded form of s, suitable for caseless
// comparison. "CS101", "cs101" and "Cs101" all fold to the same string.
func Fold(s string) string {
	// Casers keep state and must not be shared between goroutines.
	return cases.Fold().String(s)
}

// EqualFold reports whether a and b are equal under Unicode case folding.
// Unlike strings.EqualFold this also handles multi-rune foldings such as
// "STRASSE" vs "straße".
func EqualFold(a, b string) bool {
	if a == b {
		return true
	}
	return Fold(a) == Fold(b)
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
