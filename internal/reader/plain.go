package reader

import (
	"strings"
	"unicode/utf8"
)

// extractPlain splits text on form feeds into pages. Invalid UTF-8 is replaced
// with the replacement character.
func extractPlain(content []byte) []string {
	s := string(content)
	if !utf8.Valid(content) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	return strings.Split(s, "\f")
}
