// Package reader turns an uploaded or on-disk file into a paged Document.
package reader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/fingerprint"
	"github.com/hyperjump/tanya/internal/models"
)

// DefaultMaxBytes bounds a single upload when the caller passes no limit.
const DefaultMaxBytes int64 = 32 << 20

// Reader extracts page text from supported document formats.
type Reader struct {
	validatePDF bool
	logger      *zap.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithPDFValidation runs a strict structural check on PDFs before extracting text.
func WithPDFValidation(enabled bool) Option {
	return func(r *Reader) {
		r.validatePDF = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) {
		r.logger = l
	}
}

// New returns a Reader.
func New(opts ...Option) *Reader {
	r := &Reader{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadFile opens path and reads it as a document named after its base name.
func (r *Reader) ReadFile(path string, maxBytes int64) (*models.Document, error) {
	content, err := LoadFile(path, maxBytes)
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(content, filepath.Base(path))
}

// Read consumes src up to maxBytes and extracts its pages. The format is chosen
// from the extension of name. A non-positive maxBytes means DefaultMaxBytes.
func (r *Reader) Read(src io.Reader, name string, maxBytes int64) (*models.Document, error) {
	content, err := Load(src, name, maxBytes)
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(content, name)
}

// LoadFile returns the raw bytes of path without parsing them.
func LoadFile(path string, maxBytes int64) ([]byte, error) {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileReadError{Name: name, Err: err}
	}
	defer f.Close()
	return Load(f, name, maxBytes)
}

// Load reads at most maxBytes from src. Anything larger is a FileSizeError.
func Load(src io.Reader, name string, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	content, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return nil, &FileReadError{Name: name, Err: err}
	}
	if int64(len(content)) > maxBytes {
		return nil, &FileSizeError{Name: name, Limit: maxBytes}
	}
	return content, nil
}

// ReadBytes extracts pages from content already in memory.
func (r *Reader) ReadBytes(content []byte, name string) (*models.Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".pdf" && r.validatePDF {
		if err := validatePDF(content); err != nil {
			return nil, &FileReadError{Name: name, Err: err}
		}
	}
	texts, err := extractPages(content, ext)
	if err != nil {
		return nil, &FileReadError{Name: name, Err: err}
	}

	doc := &models.Document{
		Name:        name,
		Fingerprint: fingerprint.Bytes(content),
		Size:        int64(len(content)),
		Pages:       make([]*models.Page, 0, len(texts)),
	}
	for i, text := range texts {
		doc.Pages = append(doc.Pages, &models.Page{
			Number:   i + 1,
			Content:  text,
			Metadata: models.NewPageMetadata(name, i+1),
		})
	}
	if !doc.HasText() {
		return nil, &FileReadError{Name: name, Err: ErrNoText}
	}
	r.logger.Debug("read document",
		zap.String("name", name),
		zap.Int("pages", len(doc.Pages)),
		zap.Int64("bytes", doc.Size))
	return doc, nil
}

// Supported reports whether the extension of name has an extractor.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx", ".xlsx", ".pptx", ".odp", ".ods", ".txt", ".md", ".rst", "":
		return true
	}
	return false
}

// extractPages returns the text of each page in document order.
func extractPages(content []byte, ext string) ([]string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return single(extractDOCX(content))
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".odp":
		return single(extractOpenDocument(content, odpElements))
	case ".ods":
		return single(extractOpenDocument(content, odsElements))
	case ".txt", ".md", ".rst", "":
		return extractPlain(content), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func single(text string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{text}, nil
}

// readZipEntry returns the bytes of the named entry, or nil if absent.
func readZipEntry(f *zip.File, name string) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
