package search

import (
	"html"
	"strings"
	"unicode"
)

// Highlight returns content as HTML with every occurrence of a query term
// wrapped in <mark>. Content longer than maxLen characters is truncated first
// and gets "..." appended; maxLen <= 0 means no truncation.
func Highlight(content, query string, maxLen int) string {
	runes := []rune(content)
	truncated := false
	if maxLen > 0 && len(runes) > maxLen {
		runes = runes[:maxLen]
		truncated = true
	}
	terms := make(map[string]bool)
	for _, t := range strings.FieldsFunc(strings.ToLower(query), isSeparator) {
		if len([]rune(t)) > 1 {
			terms[t] = true
		}
	}

	var b strings.Builder
	start := -1
	flush := func(end int) {
		word := string(runes[start:end])
		if terms[strings.ToLower(word)] {
			b.WriteString("<mark>")
			b.WriteString(html.EscapeString(word))
			b.WriteString("</mark>")
		} else {
			b.WriteString(html.EscapeString(word))
		}
		start = -1
	}
	for i, r := range runes {
		if isSeparator(r) {
			if start >= 0 {
				flush(i)
			}
			b.WriteString(html.EscapeString(string(r)))
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		flush(len(runes))
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
