// Package similarity scores how alike two strings are on a 0..1 scale using the
// edit distance reported by diff-match-patch.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Metric compares two strings and returns a value in [0, 1], 1 meaning equal.
type Metric func(a, b string) float64

// Ratio compares a and b ignoring case.
func Ratio(a, b string) float64 {
	return ratio(strings.ToLower(a), strings.ToLower(b))
}

// RatioSensitive compares a and b exactly.
func RatioSensitive(a, b string) float64 {
	return ratio(a, b)
}

func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dmp := diffmatchpatch.New()
	// No deadline: results must not depend on machine speed.
	dmp.DiffTimeout = 0
	distance := dmp.DiffLevenshtein(dmp.DiffMain(a, b, false))
	return 1 - float64(distance)/float64(longest)
}
