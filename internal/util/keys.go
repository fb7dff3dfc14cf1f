package util

import (
	"sort"
	"strings"
)

// StripPrefix returns the logical keys of storage keys that start with prefix,
// sorted ascending. Keys without the prefix are dropped.
func StripPrefix(storageKeys []string, prefix string) []string {
	out := make([]string, 0, len(storageKeys))
	for _, k := range storageKeys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k[len(prefix):])
		}
	}
	sort.Strings(out)
	return out
}

// GlobPrefix returns a Redis MATCH pattern selecting keys that start with
// prefix. Glob metacharacters in prefix are escaped.
func GlobPrefix(prefix string) string {
	var sb strings.Builder
	sb.Grow(len(prefix) + 2)
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('*')
	return sb.String()
}

// LikePrefix returns a SQL LIKE pattern (with ESCAPE '\') selecting values
// that start with prefix.
func LikePrefix(prefix string) string {
	var sb strings.Builder
	sb.Grow(len(prefix) + 2)
	for _, r := range prefix {
		switch r {
		case '%', '_', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('%')
	return sb.String()
}

// KiB rounds a byte count to the nearest KiB.
func KiB(bytes int64) int64 {
	return (bytes + 512) / 1024
}
