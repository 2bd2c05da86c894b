// Package phone validates and formats Indonesian phone numbers.
package phone

import (
	"regexp"
	"strings"
	"unicode"
)

var pattern = regexp.MustCompile(`^(\+62|62|0)[0-9]{8,13}$`)

// Normalize removes hyphens and every Unicode space, including the
// no-break and thin spaces contacts apps paste, and the byte order mark.
func Normalize(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '\ufeff' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// IsValid reports whether raw is a +62, 62 or 0 prefixed number followed by 8-13 digits.
func IsValid(raw string) bool {
	return pattern.MatchString(Normalize(raw))
}

// Format renders a stored number in international form for display.
func Format(raw string) string {
	switch {
	case strings.HasPrefix(raw, "+62"):
		return raw
	case strings.HasPrefix(raw, "62"):
		return "+" + raw
	case strings.HasPrefix(raw, "0"):
		return "+62" + raw[1:]
	}
	return raw
}
