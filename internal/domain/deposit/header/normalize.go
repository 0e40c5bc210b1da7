// Package header canonicalizes raw report column headers and resolves
// previously recorded header names against the live header row of an upload.
package header

import (
	"regexp"
	"strings"
	"unicode"
)

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// Normalize converts a raw column header into a stable comparison key.
// Camel-case boundaries are split, everything is lowercased, separator
// characters and whitespace runs collapse to single spaces, and any other
// non-alphanumeric characters are stripped. Unparseable input normalizes
// to the empty string.
func Normalize(raw string) string {
	s := camelBoundary.ReplaceAllString(raw, "$1 $2")
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.', r == '/', r == '\\':
			return ' '
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokens returns the normalized form of a header split into words.
func Tokens(raw string) []string {
	key := Normalize(raw)
	if key == "" {
		return nil
	}
	return strings.Fields(key)
}
