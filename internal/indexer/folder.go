package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/keyword"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/search"
	"github.com/hyperjump/tanya/internal/vector"
)

// FolderIndex is the searchable index over one or more chunked files. It is
// read-only once EmbedFiles returns it and safe for concurrent searches.
type FolderIndex struct {
	files    []*models.ChunkedDocument
	chunks   map[string]*models.Chunk
	order    []*models.Chunk
	vectors  vector.VectorIndex
	keywords keyword.KeywordIndex
	fuzzy    bool
	embedder embedding.Embedder
	builtAt  time.Time
}

// Search returns up to k chunks nearest to queryVector, best first.
func (f *FolderIndex) Search(ctx context.Context, queryVector []float32, k int) ([]*models.ScoredChunk, error) {
	hits, err := f.vectors.Search(ctx, queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	out := make([]*models.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if ch, ok := f.chunks[h.ID]; ok {
			out = append(out, &models.ScoredChunk{Chunk: ch, Score: h.Score})
		}
	}
	return out, nil
}

// HybridSearch fuses vector and keyword retrieval. keywordWeight in (0,1] is
// the share of the keyword score; without a keyword index it is plain Search.
func (f *FolderIndex) HybridSearch(ctx context.Context, query string, queryVector []float32, k int, keywordWeight float64) ([]*models.ScoredChunk, error) {
	if f.keywords == nil || keywordWeight <= 0 {
		return f.Search(ctx, queryVector, k)
	}
	if keywordWeight > 1 {
		keywordWeight = 1
	}
	// widen both candidate lists so the fused top k is stable
	candidates := k * 3
	semHits, err := f.vectors.Search(ctx, queryVector, candidates)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	var opts *keyword.SearchOptions
	if f.fuzzy {
		opts = &keyword.SearchOptions{FuzzyEnabled: true}
	}
	kwHits, err := f.keywords.Search(ctx, query, candidates, opts)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	fused := search.Fuse(
		search.NormalizeKeywordScores(kwHits),
		search.NormalizeSemanticScores(semHits),
		keywordWeight, 1-keywordWeight,
	)
	out := make([]*models.ScoredChunk, 0, k)
	for _, r := range fused {
		if len(out) == k {
			break
		}
		if ch, ok := f.chunks[r.ID]; ok {
			out = append(out, &models.ScoredChunk{Chunk: ch, Score: r.Score})
		}
	}
	return out, nil
}

// Embedder returns the embedder the index was built with; queries must use it too.
func (f *FolderIndex) Embedder() embedding.Embedder { return f.embedder }

// Files returns the chunked files in the index.
func (f *FolderIndex) Files() []*models.ChunkedDocument { return f.files }

// Chunks returns every indexed chunk in file, page and offset order.
func (f *FolderIndex) Chunks() []*models.Chunk { return f.order }

// Chunk looks up a chunk by ID.
func (f *FolderIndex) Chunk(id string) (*models.Chunk, bool) {
	ch, ok := f.chunks[id]
	return ch, ok
}

// Size returns the number of indexed chunks.
func (f *FolderIndex) Size() int { return len(f.order) }

// StoreType names the vector store backing the index.
func (f *FolderIndex) StoreType() string { return f.vectors.Type() }

// HasKeywordIndex reports whether hybrid search is available.
func (f *FolderIndex) HasKeywordIndex() bool { return f.keywords != nil }

// BuiltAt is when the build finished.
func (f *FolderIndex) BuiltAt() time.Time { return f.builtAt }

// Close releases the vector and keyword indexes. The embedder is owned by the caller.
func (f *FolderIndex) Close() error {
	var errs []error
	if f.vectors != nil {
		errs = append(errs, f.vectors.Close())
	}
	if f.keywords != nil {
		errs = append(errs, f.keywords.Close())
	}
	return errors.Join(errs...)
}
