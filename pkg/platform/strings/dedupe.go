// Package strings holds small slice-of-string helpers shared by config parsing.
package strings

import "strings"

// Dedupe applies normalize to each value, drops empty results and keeps the
// first occurrence of each. Order is preserved. A nil normalize trims spaces.
func Dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	if normalize == nil {
		normalize = strings.TrimSpace
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// TrimLower trims surrounding spaces and lowercases s.
func TrimLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
