package models

import "fmt"

// Chunk is a contiguous piece of one page's text, the unit of retrieval.
type Chunk struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Page     int                    `json:"page"`
	Index    int                    `json:"index"`
	Offset   int                    `json:"offset"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Source returns the originating filename recorded in the chunk metadata.
func (c *Chunk) Source() string {
	if s, ok := c.Metadata["source"].(string); ok {
		return s
	}
	return ""
}

// MetaFile is the metadata key holding the 1-based file ordinal of a chunk
// indexed alongside other files.
const MetaFile = "file"

// Label is the short citation handle used in prompts, e.g. "p3-1". Chunks
// carrying a file ordinal get it as a prefix, e.g. "f2p3-1".
func (c *Chunk) Label() string {
	if n, ok := c.Metadata[MetaFile].(int); ok && n > 0 {
		return fmt.Sprintf("f%dp%d-%d", n, c.Page, c.Index+1)
	}
	return fmt.Sprintf("p%d-%d", c.Page, c.Index+1)
}

// ChunkedDocument pairs a document with the chunks produced from it.
type ChunkedDocument struct {
	Document  *Document `json:"document"`
	Chunks    []*Chunk  `json:"chunks"`
	ChunkSize int       `json:"chunk_size"`
	Overlap   int       `json:"overlap"`
}

// ScoredChunk is a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}
