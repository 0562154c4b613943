package processor

import (
	"strings"
	"unicode/utf8"
)

// SanitizeText strips NUL characters, which PostgreSQL text columns reject.
func SanitizeText(s string) string {
	if strings.IndexByte(s, 0) < 0 {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// SanitizeUTF8 drops invalid byte sequences and keeps every valid rune.
func SanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
