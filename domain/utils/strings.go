package utils

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Capitalize upper-cases the first grapheme cluster of s.
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	first, rest, _, _ := uniseg.FirstGraphemeClusterInString(s, -1)
	return strings.ToUpper(first) + rest
}

// ReverseString reverses s by grapheme cluster, so combining marks and
// emoji sequences stay intact.
func ReverseString(s string) string {
	clusters := make([]string, 0, len(s))
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := len(clusters) - 1; i >= 0; i-- {
		b.WriteString(clusters[i])
	}
	return b.String()
}

// IsPalindrome reports whether s reads the same in both directions.
// The comparison is exact: case and spacing count.
func IsPalindrome(s string) bool {
	return s == ReverseString(s)
}
