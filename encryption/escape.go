package encryption

import (
	"net/url"
	"strings"
)

// escapeComponent percent-encodes every byte outside A-Z a-z 0-9 - _ . ! ~ * ' ( ),
// the same set browsers leave alone in encodeURIComponent. Fallback payloads
// stay interchangeable with browser-written ones.
func escapeComponent(b []byte) string {
	const hexdigits = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if unreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hexdigits[c>>4])
		sb.WriteByte(hexdigits[c&0x0f])
	}
	return sb.String()
}

func unescapeComponent(s string) (string, error) {
	return url.PathUnescape(s)
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
