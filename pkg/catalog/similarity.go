package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// EditDistance returns the Levenshtein distance between a and b, counting
// insertions, deletions and substitutions as one edit each. It compares runes
// and is case-sensitive.
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similarity returns (maxLen - distance) / maxLen over the lowercase forms of
// a and b, where maxLen is the rune length of the longer one. Two empty
// strings are identical.
func Similarity(a, b string) float64 {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	maxLen := max(utf8.RuneCountInString(la), utf8.RuneCountInString(lb))
	if maxLen == 0 {
		return 1.0
	}
	return float64(maxLen-EditDistance(la, lb)) / float64(maxLen)
}
