package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hyperjump/tanya/internal/metrics"
	"github.com/hyperjump/tanya/pkg/utils"
)

// Defaults for the OpenAI provider.
const (
	DefaultOpenAIModel      = "text-embedding-3-small"
	DefaultOpenAIDimensions = 1536
	defaultOpenAITimeout    = 30 * time.Second
)

// OpenAIEmbedder calls the OpenAI embeddings endpoint. Vectors are L2-normalized.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an embedder for opts.Model. The client never retries.
func NewOpenAIEmbedder(opts Options) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai embeddings: API key is required")
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	dims := opts.Dimensions
	if dims <= 0 {
		dims = DefaultOpenAIDimensions
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &OpenAIEmbedder{
		client:     openai.NewClient(reqOpts...),
		model:      model,
		dimensions: dims,
	}, nil
}

// Embed returns the embedding of a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one request. Results are ordered like texts.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	// only the v3 models accept a requested dimension
	if strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	start := time.Now()
	resp, err := e.client.Embeddings.New(ctx, params)
	metrics.ObserveProvider("embedding", "openai", start)
	if err != nil {
		return nil, &EmbeddingError{Provider: e.Name(), Err: err}
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(texts) {
			return nil, &EmbeddingError{Provider: e.Name(), Err: fmt.Errorf("response index %d out of range", idx)}
		}
		if len(d.Embedding) != e.dimensions {
			return nil, &EmbeddingError{
				Provider: e.Name(),
				Err:      fmt.Errorf("got %d dimensions, expected %d", len(d.Embedding), e.dimensions),
			}
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		utils.NormalizeL2(vec)
		out[idx] = vec
	}
	for i, v := range out {
		if v == nil {
			return nil, &EmbeddingError{Provider: e.Name(), Err: fmt.Errorf("missing embedding for input %d", i)}
		}
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Name returns "openai/<model>".
func (e *OpenAIEmbedder) Name() string { return "openai/" + e.model }

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *OpenAIEmbedder) Close() error { return nil }
