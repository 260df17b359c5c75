// Package chunker splits a paged document into bounded, overlapping text chunks.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/models"
)

// Default sizes, in characters.
const (
	DefaultChunkSize = 300
	DefaultOverlap   = 0
)

// separators are tried in order when looking for a place to end a chunk.
var separators = []string{"\n\n", "\n", ". ", "? ", "! ", " "}

var chunkNamespace = uuid.MustParse("6f1c1d52-3f7a-4c55-9d0e-6a3e2b8f4c11")

// Chunker splits page text into chunks of at most Size characters, each
// sharing Overlap characters with the previous chunk of the same page.
type Chunker struct {
	size       int
	overlap    int
	mergePages bool
	logger     *zap.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMergePages joins all pages into one text before chunking, so chunks may
// cross page boundaries.
func WithMergePages(merge bool) Option {
	return func(c *Chunker) {
		c.mergePages = merge
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chunker) {
		c.logger = l
	}
}

// New creates a chunker. size must be positive and overlap in [0, size).
func New(size, overlap int, opts ...Option) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	c := &Chunker{size: size, overlap: overlap, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Size returns the maximum chunk length in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of characters shared by consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits every page of doc. Whitespace-only pages produce no chunks.
func (c *Chunker) Chunk(doc *models.Document) (*models.ChunkedDocument, error) {
	if doc == nil {
		return nil, errors.New("chunk: nil document")
	}
	pages := doc.Pages
	if c.mergePages && len(pages) > 1 {
		pages = []*models.Page{mergePages(doc)}
	}

	out := &models.ChunkedDocument{
		Document:  doc,
		ChunkSize: c.size,
		Overlap:   c.overlap,
	}
	for _, page := range pages {
		if strings.TrimSpace(page.Content) == "" {
			continue
		}
		for i, span := range c.split(page.Content) {
			out.Chunks = append(out.Chunks, c.newChunk(doc, page, i, span))
		}
	}
	c.logger.Debug("chunked document",
		zap.String("name", doc.Name),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("chunks", len(out.Chunks)))
	return out, nil
}

type span struct {
	start int
	text  string
}

// split returns the chunk windows of text in order. Offsets are rune offsets.
func (c *Chunker) split(text string) []span {
	runes := []rune(text)
	n := len(runes)
	var spans []span
	start := 0
	for start < n {
		limit := start + c.size
		end := n
		if limit < n {
			end = c.boundary(runes, start, limit)
		}
		spans = append(spans, span{start: start, text: string(runes[start:end])})
		if end >= n {
			break
		}
		start = end - c.overlap
	}
	return spans
}

// boundary picks where a chunk starting at start should end, at most limit.
// It returns the position just after the last preferred separator in the
// window, or limit when no separator leaves a long enough chunk.
func (c *Chunker) boundary(runes []rune, start, limit int) int {
	minLen := c.size / 2
	if minLen <= c.overlap {
		minLen = c.overlap + 1
	}
	window := string(runes[start:limit])
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		// byte index to rune count, separator kept with the preceding chunk
		end := start + len([]rune(window[:idx])) + len([]rune(sep))
		if end-start >= minLen {
			return end
		}
	}
	return limit
}

func (c *Chunker) newChunk(doc *models.Document, page *models.Page, index int, s span) *models.Chunk {
	meta := make(map[string]interface{}, len(page.Metadata)+2)
	for k, v := range page.Metadata {
		meta[k] = v
	}
	meta["chunk"] = index
	meta["offset"] = s.start
	key := fmt.Sprintf("%s|%s|%d|%d|%d|%d", doc.Fingerprint, doc.Name, page.Number, s.start, c.size, c.overlap)
	return &models.Chunk{
		ID:       uuid.NewSHA1(chunkNamespace, []byte(key)).String(),
		Content:  s.text,
		Page:     page.Number,
		Index:    index,
		Offset:   s.start,
		Metadata: meta,
	}
}

func mergePages(doc *models.Document) *models.Page {
	meta := models.NewPageMetadata(doc.Name, 1)
	for k, v := range doc.Pages[0].Metadata {
		if _, ok := meta[k]; !ok {
			meta[k] = v
		}
	}
	meta["pages"] = len(doc.Pages)
	return &models.Page{Number: 1, Content: doc.Text(), Metadata: meta}
}

// Reconstruct rebuilds the text of one page from its chunks by dropping the
// overlapping prefix of every chunk after the first.
func Reconstruct(chunks []*models.Chunk, overlap int) string {
	var b strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			b.WriteString(ch.Content)
			continue
		}
		r := []rune(ch.Content)
		if overlap < len(r) {
			b.WriteString(string(r[overlap:]))
		}
	}
	return b.String()
}
