package model

import "strings"

// ValidTicker reports whether s looks like a plain US ticker symbol:
// one to five ASCII letters, case-insensitive.
func ValidTicker(s string) bool {
	if len(s) < 1 || len(s) > 5 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
