// Package indexer embeds chunked files into a searchable folder index.
package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/keyword"
	"github.com/hyperjump/tanya/internal/metrics"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/registry"
	"github.com/hyperjump/tanya/internal/vector"
)

// Defaults for batching and per-call timeouts.
const (
	DefaultBatchSize = 100
	DefaultTimeout   = 60 * time.Second
)

// Indexer builds a FolderIndex from chunked files.
type Indexer struct {
	embedder     embedding.Embedder
	stores       *registry.Registry[vector.Factory]
	storeName    string
	batchSize    int
	timeout      time.Duration
	keywordIndex bool
	fuzzy        bool
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets how many chunks go into one embedding call.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithTimeout bounds every embedding call.
func WithTimeout(d time.Duration) IndexerOption {
	return func(idx *Indexer) {
		if d > 0 {
			idx.timeout = d
		}
	}
}

// WithKeywordIndex also builds a keyword index over the chunks, enabling hybrid search.
func WithKeywordIndex(enabled bool) IndexerOption {
	return func(idx *Indexer) { idx.keywordIndex = enabled }
}

// WithFuzzyKeywords makes keyword retrieval tolerate typos in query terms.
func WithFuzzyKeywords(enabled bool) IndexerOption {
	return func(idx *Indexer) { idx.fuzzy = enabled }
}

// WithVectorRegistry replaces the registry used to resolve the store name.
func WithVectorRegistry(r *registry.Registry[vector.Factory]) IndexerOption {
	return func(idx *Indexer) { idx.stores = r }
}

// NewIndexer creates an indexer that embeds with embedder and stores vectors
// in the vector store registered as storeName.
func NewIndexer(embedder embedding.Embedder, storeName string, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		embedder:  embedder,
		stores:    vector.NewRegistry(),
		storeName: storeName,
		batchSize: DefaultBatchSize,
		timeout:   DefaultTimeout,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// EmbedFiles embeds every chunk of files and returns the resulting index.
// Each chunk appears in the index exactly once; duplicate chunk IDs fail the build.
// With more than one file, every chunk is tagged with its file ordinal so that
// citation labels stay unique across files.
func (idx *Indexer) EmbedFiles(ctx context.Context, files []*models.ChunkedDocument) (*FolderIndex, error) {
	start := time.Now()
	folder, err := idx.build(ctx, files)
	if err != nil {
		metrics.IndexBuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.IndexBuildsTotal.WithLabelValues("ok").Inc()
	metrics.IndexedChunks.Set(float64(folder.Size()))
	idx.logger.Debug("index built",
		zap.Int("files", len(files)),
		zap.Int("chunks", folder.Size()),
		zap.String("embedding", idx.embedder.Name()),
		zap.String("store", idx.storeName),
		zap.Duration("took", time.Since(start)))
	return folder, nil
}

func (idx *Indexer) build(ctx context.Context, files []*models.ChunkedDocument) (*FolderIndex, error) {
	folder := &FolderIndex{
		files:    files,
		chunks:   make(map[string]*models.Chunk),
		embedder: idx.embedder,
	}
	multi := len(files) > 1
	for i, f := range files {
		for _, ch := range f.Chunks {
			if multi {
				if ch.Metadata == nil {
					ch.Metadata = make(map[string]interface{})
				}
				ch.Metadata[models.MetaFile] = i + 1
			} else {
				delete(ch.Metadata, models.MetaFile)
			}
			if _, dup := folder.chunks[ch.ID]; dup {
				return nil, &IndexBuildError{Store: idx.storeName, Err: &vector.DuplicateIDError{ID: ch.ID}}
			}
			folder.chunks[ch.ID] = ch
			folder.order = append(folder.order, ch)
		}
	}
	if len(folder.order) == 0 {
		return nil, &IndexBuildError{Store: idx.storeName, Err: ErrNoChunks}
	}

	factory, err := idx.stores.Lookup(idx.storeName)
	if err != nil {
		return nil, &IndexBuildError{Store: idx.storeName, Err: err}
	}
	store, err := factory(idx.embedder.Dimensions())
	if err != nil {
		return nil, &IndexBuildError{Store: idx.storeName, Err: err}
	}
	folder.vectors = store

	for startIdx := 0; startIdx < len(folder.order); startIdx += idx.batchSize {
		end := startIdx + idx.batchSize
		if end > len(folder.order) {
			end = len(folder.order)
		}
		if err := idx.addBatch(ctx, store, folder.order[startIdx:end]); err != nil {
			_ = folder.Close()
			return nil, err
		}
	}

	if idx.keywordIndex {
		kw, err := keyword.NewBleveIndex()
		if err != nil {
			_ = folder.Close()
			return nil, &IndexBuildError{Store: "keyword", Err: err}
		}
		folder.keywords = kw
		folder.fuzzy = idx.fuzzy
		if err := kw.IndexChunks(ctx, folder.order); err != nil {
			_ = folder.Close()
			return nil, &IndexBuildError{Store: "keyword", Err: err}
		}
	}
	folder.builtAt = time.Now()
	return folder, nil
}

func (idx *Indexer) addBatch(ctx context.Context, store vector.VectorIndex, chunks []*models.Chunk) error {
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
		ids[i] = ch.ID
	}
	callCtx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()
	vecs, err := idx.embedder.EmbedBatch(callCtx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vecs) != len(chunks) {
		return &IndexBuildError{
			Store: idx.storeName,
			Err:   fmt.Errorf("got %d embeddings for %d chunks", len(vecs), len(chunks)),
		}
	}
	if err := store.Add(ctx, ids, vecs); err != nil {
		return &IndexBuildError{Store: idx.storeName, Err: err}
	}
	return nil
}
