// Package embedding turns text into vectors through pluggable providers, with
// fingerprint-keyed memoization of results.
package embedding

import (
	"context"
	"time"

	"github.com/hyperjump/tanya/internal/registry"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Name identifies the provider and model; vectors from different names are not comparable.
	Name() string
	Close() error
}

// Options is the provider-independent configuration handed to a Factory.
type Options struct {
	Model      string
	Dimensions int
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	ModelPath  string
	MaxTokens  int
}

// Factory builds an Embedder from options.
type Factory func(opts Options) (Embedder, error)

// NewRegistry returns a registry with the built-in providers: "openai", "debug" and "onnx".
func NewRegistry() *registry.Registry[Factory] {
	r := registry.New[Factory]("embedding provider")
	r.Register("openai", func(opts Options) (Embedder, error) {
		e, err := NewOpenAIEmbedder(opts)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
	r.Register("debug", func(opts Options) (Embedder, error) {
		return NewDebugEmbedder(opts.Dimensions), nil
	})
	r.Register("onnx", func(opts Options) (Embedder, error) {
		e, err := NewONNXEmbedder(opts)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
	return r
}
