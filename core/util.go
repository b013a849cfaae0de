package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// SplitList splits a `sep` separated list, cleaning every item and dropping empty and duplicate ones.
func SplitList(s, sep string, lower ...bool) []string {
	parts := strings.Split(s, sep)
	items := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = CleanString(p, lower...)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		items = append(items, p)
	}
	return items
}
