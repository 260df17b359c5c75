package embedding

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/fingerprint"
	"github.com/hyperjump/tanya/internal/metrics"
)

// CachedEmbedder memoizes another Embedder. Keys are fingerprints of the
// provider name and the text, so switching provider or model never returns
// stale vectors. Store errors are logged and treated as misses.
type CachedEmbedder struct {
	inner  Embedder
	store  Store
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// CachedOption configures a CachedEmbedder.
type CachedOption func(*CachedEmbedder)

// WithCacheLogger sets the logger.
func WithCacheLogger(l *zap.Logger) CachedOption {
	return func(c *CachedEmbedder) {
		c.logger = l
	}
}

// NewCachedEmbedder wraps inner with store. A nil store gets an in-memory LRU.
func NewCachedEmbedder(inner Embedder, store Store, opts ...CachedOption) *CachedEmbedder {
	if store == nil {
		store = NewEmbeddingCache(DefaultCacheSize)
	}
	c := &CachedEmbedder{inner: inner, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the memo key for text under this provider.
func (c *CachedEmbedder) Key(text string) string {
	return fingerprint.Parts(c.inner.Name(), text)
}

// Embed returns the cached vector or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch looks up every text and sends only the misses to the provider, in one call.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		keys[i] = c.Key(text)
		vec, ok, err := c.store.Load(ctx, keys[i])
		if err != nil {
			c.logger.Warn("embedding cache load failed", zap.Error(err))
		}
		if ok && len(vec) == c.inner.Dimensions() {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	c.hits.Add(int64(len(texts) - len(missIdx)))
	c.misses.Add(int64(len(missIdx)))
	metrics.EmbeddingCacheLookups.WithLabelValues("hit").Add(float64(len(texts) - len(missIdx)))
	metrics.EmbeddingCacheLookups.WithLabelValues("miss").Add(float64(len(missIdx)))
	if len(missIdx) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, &EmbeddingError{
			Provider: c.inner.Name(),
			Err:      fmt.Errorf("got %d embeddings for %d texts", len(vecs), len(missTexts)),
		}
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		if err := c.store.Save(ctx, keys[i], vecs[j]); err != nil {
			c.logger.Warn("embedding cache save failed", zap.Error(err))
		}
	}
	return out, nil
}

// Stats returns the number of memo hits and misses since creation.
func (c *CachedEmbedder) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Dimensions returns the wrapped provider's dimension.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// Name returns the wrapped provider's name.
func (c *CachedEmbedder) Name() string { return c.inner.Name() }

// Close closes the wrapped provider.
func (c *CachedEmbedder) Close() error { return c.inner.Close() }
