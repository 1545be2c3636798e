package domain

import "unicode/utf8"

// TruncateUTF8 cuts value to at most max bytes without splitting a rune.
func TruncateUTF8(value string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(value) <= max {
		return value
	}
	for max > 0 && !utf8.RuneStart(value[max]) {
		max--
	}
	return value[:max]
}
