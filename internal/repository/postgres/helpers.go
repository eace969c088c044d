package postgres

import (
	"strings"
)

// prefixed qualifies a comma-separated column list with a table alias
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

// int64Set builds a membership set from a slice of ids
func int64Set(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// sameIDMultiset reports whether two id slices contain exactly the same ids.
// Both sides are unique-id slices, so set equality plus length suffices.
func sameIDMultiset(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	set := int64Set(a)
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}
