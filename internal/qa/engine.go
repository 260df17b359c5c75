// Package qa answers questions against a folder index.
package qa

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/llm"
	"github.com/hyperjump/tanya/internal/metrics"
	"github.com/hyperjump/tanya/internal/models"
)

// ErrEmptyQuery is returned for a blank question before any provider is called.
var ErrEmptyQuery = errors.New("query is empty")

// Defaults for retrieval and model calls.
const (
	DefaultTopK    = 5
	DefaultTimeout = 60 * time.Second
)

// SystemPrompt instructs the model to answer only from the numbered sources.
const SystemPrompt = `You answer questions about a document using only the sources provided.
Each source starts with a label in square brackets, for example [p3-1].
Cite every source you use by its label in square brackets.
If the sources do not contain the answer, say that you don't know. Do not make up an answer.`

var labelPattern = regexp.MustCompile(`\b(?:f\d+)?p\d+-\d+\b`)

// Request is one question.
type Request struct {
	Query       string
	Temperature float64
	// ReturnAll keeps every retrieved chunk in the result instead of only the cited ones.
	ReturnAll bool
	// TopK overrides the engine's retrieval depth when positive.
	TopK int
}

// Engine retrieves sources and asks the model once per query.
type Engine struct {
	model         llm.Model
	timeout       time.Duration
	embedTimeout  time.Duration
	topK          int
	keywordWeight float64
	system        string
	logger        *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTimeout bounds the model call, and the query embedding unless
// WithEmbeddingTimeout is given.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithEmbeddingTimeout bounds the query embedding.
func WithEmbeddingTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.embedTimeout = d
		}
	}
}

// WithTopK sets how many chunks are retrieved.
func WithTopK(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithKeywordWeight enables hybrid retrieval on folders that carry a keyword index.
func WithKeywordWeight(w float64) EngineOption {
	return func(e *Engine) { e.keywordWeight = w }
}

// WithSystemPrompt replaces SystemPrompt.
func WithSystemPrompt(s string) EngineOption {
	return func(e *Engine) {
		if strings.TrimSpace(s) != "" {
			e.system = s
		}
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a query engine backed by model.
func NewEngine(model llm.Model, opts ...EngineOption) *Engine {
	e := &Engine{
		model:   model,
		timeout: DefaultTimeout,
		topK:    DefaultTopK,
		system:  SystemPrompt,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.embedTimeout == 0 {
		e.embedTimeout = e.timeout
	}
	return e
}

// Model returns the model name.
func (e *Engine) Model() string { return e.model.Name() }

// Query answers req against folder. Nothing is retried.
func (e *Engine) Query(ctx context.Context, folder *indexer.FolderIndex, req *Request) (*models.QueryResult, error) {
	start := time.Now()
	result, err := e.query(ctx, folder, req)
	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}
	metrics.QueriesTotal.WithLabelValues("ok").Inc()
	result.Took = time.Since(start)
	e.logger.Debug("query answered",
		zap.String("id", result.ID),
		zap.Int("sources", len(result.Sources)),
		zap.Duration("took", result.Took))
	return result, nil
}

func (e *Engine) query(ctx context.Context, folder *indexer.FolderIndex, req *Request) (*models.QueryResult, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if folder == nil {
		return nil, errors.New("no document is indexed")
	}
	k := e.topK
	if req.TopK > 0 {
		k = req.TopK
	}

	embedCtx, cancel := context.WithTimeout(ctx, e.embedTimeout)
	vec, err := folder.Embedder().Embed(embedCtx, req.Query)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	retrieved, err := folder.HybridSearch(ctx, req.Query, vec, k, e.keywordWeight)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve sources: %w", err)
	}

	prompt := &llm.Prompt{System: e.system, Question: req.Query}
	for _, sc := range retrieved {
		prompt.Sources = append(prompt.Sources, llm.Source{Label: sc.Chunk.Label(), Content: sc.Chunk.Content})
	}
	modelCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	answer, err := e.model.Complete(modelCtx, prompt, req.Temperature)
	if err != nil {
		var invErr *llm.ModelInvocationError
		if !errors.As(err, &invErr) {
			err = &llm.ModelInvocationError{Model: e.model.Name(), Err: err}
		}
		return nil, err
	}
	if strings.TrimSpace(answer) == "" {
		return nil, &llm.ModelInvocationError{Model: e.model.Name(), Err: llm.ErrEmptyResponse}
	}

	sources := retrieved
	if !req.ReturnAll {
		sources = CitedSources(answer, retrieved)
	}
	return &models.QueryResult{
		ID:      uuid.NewString(),
		Query:   req.Query,
		Answer:  answer,
		Sources: sources,
		Model:   e.model.Name(),
	}, nil
}

// CitedSources keeps the retrieved chunks whose label appears in answer, in rank
// order. When the answer cites nothing it returns all of retrieved.
func CitedSources(answer string, retrieved []*models.ScoredChunk) []*models.ScoredChunk {
	cited := make(map[string]bool)
	for _, label := range labelPattern.FindAllString(answer, -1) {
		cited[label] = true
	}
	var out []*models.ScoredChunk
	for _, sc := range retrieved {
		if cited[sc.Chunk.Label()] {
			out = append(out, sc)
		}
	}
	if len(out) == 0 {
		return retrieved
	}
	return out
}

func outcome(err error) string {
	var invErr *llm.ModelInvocationError
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return "invalid"
	case errors.As(err, &invErr):
		return "model_error"
	default:
		return "error"
	}
}
