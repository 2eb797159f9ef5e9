package httpclient

import (
	"strings"
	"unicode/utf8"
)

// Snippet returns body trimmed and capped at max bytes for logs and errors.
// A cut never splits a UTF-8 sequence and is marked with "...".
func Snippet(body []byte, max int) string {
	s := strings.TrimSpace(string(body))
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
