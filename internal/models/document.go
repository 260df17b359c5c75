// Package models defines core data structures for documents, chunks, and query results.
package models

import "strings"

// Document is a file that has been read into ordered pages.
type Document struct {
	Name        string  `json:"name"`
	Fingerprint string  `json:"fingerprint"`
	Size        int64   `json:"size"`
	Pages       []*Page `json:"pages"`
}

// Page is one logical unit of a document (a PDF page, a sheet, a slide).
// Metadata always carries "source" and "page".
type Page struct {
	Number   int                    `json:"number"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Text joins every page's content with blank lines between pages.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Content)
	}
	return strings.Join(parts, "\n\n")
}

// HasText reports whether any page has non-whitespace content.
func (d *Document) HasText() bool {
	for _, p := range d.Pages {
		if strings.TrimSpace(p.Content) != "" {
			return true
		}
	}
	return false
}

// NewPageMetadata returns the base metadata for a page of the named source.
func NewPageMetadata(source string, number int) map[string]interface{} {
	return map[string]interface{}{
		"source": source,
		"page":   number,
	}
}
