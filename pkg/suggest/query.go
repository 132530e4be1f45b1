package suggest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TrailingWord returns the word currently being typed: everything after the
// last whitespace. It is empty when query is empty or ends in whitespace.
func TrailingWord(query string) string {
	idx := strings.LastIndexFunc(query, unicode.IsSpace)
	if idx < 0 {
		return query
	}
	_, size := utf8.DecodeRuneInString(query[idx:])
	return query[idx+size:]
}

// ReplaceTrailing swaps the trailing word of query for key and keeps every
// preceding word as typed.
func ReplaceTrailing(query, key string) string {
	trailing := TrailingWord(query)
	return query[:len(query)-len(trailing)] + key
}
