package reader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const openDocumentContentPath = "content.xml"

var (
	odTextP    = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odTextSpan = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odTextH    = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)

	odpElements = []*regexp.Regexp{odTextH, odTextP, odTextSpan}
	odsElements = []*regexp.Regexp{odTextP, odTextSpan}
)

// extractOpenDocument collects the text of the given elements from content.xml
// of an OpenDocument package (.odp, .ods).
func extractOpenDocument(content []byte, elements []*regexp.Regexp) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract OpenDocument: not a zip: %w", err)
	}
	var contentXML []byte
	for _, f := range zr.File {
		if f.Name == openDocumentContentPath {
			if contentXML, err = readZipEntry(f, f.Name); err != nil {
				return "", fmt.Errorf("extract OpenDocument: %w", err)
			}
			break
		}
	}
	if contentXML == nil {
		return "", fmt.Errorf("extract OpenDocument: %s not found", openDocumentContentPath)
	}
	var b strings.Builder
	for _, re := range elements {
		for _, p := range re.FindAllSubmatch(contentXML, -1) {
			s := strings.TrimSpace(string(p[1]))
			if s == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(s)
		}
	}
	return b.String(), nil
}
