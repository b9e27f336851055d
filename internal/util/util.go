// Package util provides small string helpers shared by the grammar and payload builders.
package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// SplitCamel inserts a space at every lower-to-upper case boundary.
// "GrenadeLauncher" becomes "Grenade Launcher".
func SplitCamel(s string) string {
	return camelBoundary.ReplaceAllString(s, "${1} ${2}")
}

// TitleWords upper-cases the first letter of every word and leaves the rest
// untouched, so acronyms such as "SMG" survive.
// A Caser is stateful, so one is built per call.
func TitleWords(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}

// CollapseSpaces trims s and folds runs of whitespace into a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
