// Package session runs the document pipeline for the single configured document
// and answers questions against the resulting index.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/chunker"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/fingerprint"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/llm"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/qa"
	"github.com/hyperjump/tanya/internal/reader"
	"github.com/hyperjump/tanya/internal/registry"
	"github.com/hyperjump/tanya/internal/validate"
	"github.com/hyperjump/tanya/internal/vector"
)

// ErrNotLoaded is returned by Ask before a document has been loaded.
var ErrNotLoaded = errors.New("no document loaded")

// ValidationError reports failed preconditions. Nothing downstream of the
// failed check has run.
type ValidationError struct {
	Failures []validate.Failure
}

func (e *ValidationError) Error() string {
	return "validation failed: " + validate.Messages(e.Failures)
}

// Session owns the document, its chunks and the folder index built from them.
type Session struct {
	cfg       *config.Config
	reader    *reader.Reader
	chunker   *chunker.Chunker
	embedders *registry.Registry[embedding.Factory]
	models    *registry.Registry[llm.Factory]
	vectors   *registry.Registry[vector.Factory]
	memoStore embedding.Store
	logger    *zap.Logger

	// loadMu serializes Load calls; mu guards the fields below it.
	loadMu   sync.Mutex
	mu       sync.RWMutex
	embedder *embedding.CachedEmbedder
	engine   *qa.Engine
	state    *state
	loadErr  error
}

type state struct {
	key      string
	chunked  *models.ChunkedDocument
	folder   *indexer.FolderIndex
	loadedAt time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for the session and every stage it builds.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithEmbeddingRegistry replaces the embedding provider registry.
func WithEmbeddingRegistry(r *registry.Registry[embedding.Factory]) Option {
	return func(s *Session) { s.embedders = r }
}

// WithModelRegistry replaces the language model registry.
func WithModelRegistry(r *registry.Registry[llm.Factory]) Option {
	return func(s *Session) { s.models = r }
}

// WithVectorRegistry replaces the vector store registry.
func WithVectorRegistry(r *registry.Registry[vector.Factory]) Option {
	return func(s *Session) { s.vectors = r }
}

// WithEmbeddingStore sets the backing store of the embedding memo. The default
// is an in-memory LRU sized by embedding.cache_size.
func WithEmbeddingStore(store embedding.Store) Option {
	return func(s *Session) { s.memoStore = store }
}

// New creates a session for cfg. Chunking parameters are checked here; nothing
// is read until Load.
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:       cfg,
		embedders: embedding.NewRegistry(),
		models:    llm.NewRegistry(),
		vectors:   vector.NewRegistry(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	c, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap,
		chunker.WithMergePages(cfg.Chunking.MergePages),
		chunker.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}
	s.chunker = c
	s.reader = reader.New(
		reader.WithPDFValidation(cfg.Document.ValidatePDF),
		reader.WithLogger(s.logger))
	if s.memoStore == nil {
		s.memoStore = embedding.NewEmbeddingCache(cfg.Embedding.CacheSize)
	}
	return s, nil
}

// Load runs the pipeline: credential check, read, file check, chunk, index.
// The first failing stage stops the run and the previous index, if any, stays
// in service. Loading bytes identical to the current document is a no-op.
// The outcome is kept for LoadErrors.
func (s *Session) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	err := s.load(ctx)
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
	return err
}

// LoadErrors returns the user-facing messages of the last failed Load, or nil
// when the last Load succeeded.
func (s *Session) LoadErrors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return errorMessages(s.loadErr)
}

func errorMessages(err error) []string {
	if err == nil {
		return nil
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		msgs := make([]string, len(valErr.Failures))
		for i, f := range valErr.Failures {
			msgs[i] = f.Message
		}
		return msgs
	}
	return []string{err.Error()}
}

func (s *Session) load(ctx context.Context) error {
	if failures := validate.Run(s.credentialChecks()...); len(failures) > 0 {
		return &ValidationError{Failures: failures}
	}
	if err := s.initProviders(); err != nil {
		return err
	}

	start := time.Now()
	raw, err := reader.LoadFile(s.cfg.Document.Path, s.cfg.Document.MaxBytes)
	if err != nil {
		return err
	}
	key := fingerprint.Parts(
		fingerprint.Bytes(raw),
		strconv.Itoa(s.chunker.Size()),
		strconv.Itoa(s.chunker.Overlap()),
		strconv.FormatBool(s.cfg.Chunking.MergePages),
	)
	if cur := s.current(); cur != nil && cur.key == key {
		s.logger.Debug("document unchanged, keeping index", zap.String("path", s.cfg.Document.Path))
		return nil
	}

	doc, err := s.reader.ReadBytes(raw, filepath.Base(s.cfg.Document.Path))
	if err != nil {
		return err
	}
	if ok, f := validate.File(doc); !ok {
		return &ValidationError{Failures: []validate.Failure{f}}
	}
	chunked, err := s.chunker.Chunk(doc)
	if err != nil {
		return fmt.Errorf("failed to chunk document: %w", err)
	}

	idx := indexer.NewIndexer(s.embedder, s.cfg.VectorStore.Provider,
		indexer.WithBatchSize(s.cfg.Embedding.BatchSize),
		indexer.WithTimeout(s.cfg.Embedding.Timeout),
		indexer.WithKeywordIndex(s.cfg.Query.Hybrid),
		indexer.WithFuzzyKeywords(s.cfg.Query.Fuzzy),
		indexer.WithVectorRegistry(s.vectors),
		indexer.WithLogger(s.logger))
	folder, err := idx.EmbedFiles(ctx, []*models.ChunkedDocument{chunked})
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.state
	s.state = &state{key: key, chunked: chunked, folder: folder, loadedAt: time.Now()}
	s.mu.Unlock()
	if old != nil {
		_ = old.folder.Close()
	}

	hits, misses := s.embedder.Stats()
	s.logger.Info("document indexed",
		zap.String("document", doc.Name),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("chunks", len(chunked.Chunks)),
		zap.Int64("embedding_cache_hits", hits),
		zap.Int64("embedding_cache_misses", misses),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Reload re-runs Load, typically after the document changed on disk.
func (s *Session) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// Ask validates q and answers it against the current index. The index is not
// swapped while a question is in flight.
func (s *Session) Ask(ctx context.Context, req *qa.Request) (*models.QueryResult, error) {
	query := ""
	if req != nil {
		query = req.Query
	}
	if ok, f := validate.Query(query); !ok {
		return nil, &ValidationError{Failures: []validate.Failure{f}}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil || s.engine == nil {
		return nil, ErrNotLoaded
	}
	return s.engine.Query(ctx, s.state.folder, req)
}

// DefaultRequest builds a request from the query settings in the config.
func (s *Session) DefaultRequest(query string) *qa.Request {
	return &qa.Request{
		Query:       query,
		Temperature: s.cfg.Model.Temperature,
		ReturnAll:   s.cfg.Query.ReturnAllOrDefault(),
		TopK:        s.cfg.Query.TopK,
	}
}

// Document returns the loaded document, or nil.
func (s *Session) Document() *models.Document {
	if cur := s.current(); cur != nil {
		return cur.chunked.Document
	}
	return nil
}

// Chunked returns the loaded chunked document, or nil.
func (s *Session) Chunked() *models.ChunkedDocument {
	if cur := s.current(); cur != nil {
		return cur.chunked
	}
	return nil
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// Close releases the index and providers.
func (s *Session) Close() error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.state != nil {
		errs = append(errs, s.state.folder.Close())
		s.state = nil
	}
	if s.embedder != nil {
		errs = append(errs, s.embedder.Close())
	}
	return errors.Join(errs...)
}

func (s *Session) current() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// credentialChecks returns one key check per distinct provider credential.
func (s *Session) credentialChecks() []validate.Check {
	checks := []validate.Check{
		validate.APIKeyCheck(s.cfg.Embedding.Provider, s.cfg.EmbeddingAPIKey()),
	}
	if s.cfg.Model.Provider != s.cfg.Embedding.Provider || s.cfg.Model.APIKeyEnv != s.cfg.Embedding.APIKeyEnv {
		checks = append(checks, validate.APIKeyCheck(s.cfg.Model.Provider, s.cfg.APIKey()))
	}
	return checks
}

// initProviders builds the embedder and model once; later loads reuse them so
// the embedding memo carries over between reloads.
func (s *Session) initProviders() error {
	if s.embedder != nil {
		return nil
	}
	ec := s.cfg.Embedding
	embFactory, err := s.embedders.Lookup(ec.Provider)
	if err != nil {
		return err
	}
	inner, err := embFactory(embedding.Options{
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		APIKey:     s.cfg.EmbeddingAPIKey(),
		BaseURL:    ec.BaseURL,
		Timeout:    ec.Timeout,
		ModelPath:  ec.ModelPath,
		MaxTokens:  ec.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	mc := s.cfg.Model
	modelFactory, err := s.models.Lookup(mc.Provider)
	if err != nil {
		_ = inner.Close()
		return err
	}
	model, err := modelFactory(llm.Options{
		Model:     mc.Model,
		APIKey:    s.cfg.APIKey(),
		BaseURL:   mc.BaseURL,
		Timeout:   mc.Timeout,
		MaxTokens: mc.MaxTokens,
	})
	if err != nil {
		_ = inner.Close()
		return fmt.Errorf("failed to create model: %w", err)
	}

	keywordWeight := 0.0
	if s.cfg.Query.Hybrid {
		keywordWeight = s.cfg.Query.KeywordWeight
	}
	s.mu.Lock()
	s.embedder = embedding.NewCachedEmbedder(inner, s.memoStore, embedding.WithCacheLogger(s.logger))
	s.engine = qa.NewEngine(model,
		qa.WithTimeout(mc.Timeout),
		qa.WithEmbeddingTimeout(ec.Timeout),
		qa.WithSystemPrompt(mc.SystemPrompt),
		qa.WithTopK(s.cfg.Query.TopK),
		qa.WithKeywordWeight(keywordWeight),
		qa.WithLogger(s.logger))
	s.mu.Unlock()
	return nil
}
