package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/hyperjump/tanya/internal/fingerprint"
	"github.com/hyperjump/tanya/pkg/utils"
)

// DefaultDebugDimensions is used when no dimension is configured for the debug provider.
const DefaultDebugDimensions = 384

// DebugEmbedder is a deterministic, offline embedder. Words are hashed into
// buckets so texts sharing vocabulary score higher than unrelated ones, and
// identical texts always get identical vectors.
type DebugEmbedder struct {
	dimensions int
}

// NewDebugEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewDebugEmbedder(dimensions int) *DebugEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDebugDimensions
	}
	return &DebugEmbedder{dimensions: dimensions}
}

// Embed returns a hashed bag-of-words vector with unit length.
func (e *DebugEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EmbeddingError{Provider: e.Name(), Err: err}
	}
	emb := make([]float32, e.dimensions)
	words := splitWords(text)
	for _, w := range words {
		emb[fingerprint.Sum64([]byte(w))%uint64(e.dimensions)]++
	}
	if len(words) == 0 {
		// no word content: fall back to a vector derived from the whole text
		h := float64(fingerprint.Sum64([]byte(text)) % 1000003)
		for i := range emb {
			emb[i] = float32(math.Sin(h*float64(i+1))*0.1 + 0.01)
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *DebugEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *DebugEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "debug/<dimensions>".
func (e *DebugEmbedder) Name() string {
	return fmt.Sprintf("debug/%d", e.dimensions)
}

// Close is a no-op.
func (e *DebugEmbedder) Close() error {
	return nil
}
