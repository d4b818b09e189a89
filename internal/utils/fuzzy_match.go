package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// normalize lowercases and trims a term before comparison
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EqualFold reports whether a and b are the same term, ignoring case and
// surrounding whitespace
func EqualFold(a, b string) bool {
	return normalize(a) == normalize(b)
}

// ContainsEither reports whether either term contains the other, ignoring
// case. Empty terms never match.
func ContainsEither(a, b string) bool {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// FuzzyMatchAmenity reports whether a requested amenity is offered by a
// listing amenity, e.g. "pool" matches "Swimming Pool"
func FuzzyMatchAmenity(requested, offered string) bool {
	return ContainsEither(requested, offered)
}

// MatchAny reports whether requested matches any of offered
func MatchAny(requested string, offered []string) bool {
	for _, o := range offered {
		if FuzzyMatchAmenity(requested, o) {
			return true
		}
	}
	return false
}

// Similarity is 1 minus the edit distance normalized by the longer term, in
// [0,1]. Comparison ignores case and surrounding whitespace.
func Similarity(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
