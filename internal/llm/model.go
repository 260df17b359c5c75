// Package llm provides the language models that turn retrieved sources into an answer.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/tanya/internal/registry"
)

// Model completes a prompt. Implementations make exactly one provider call per Complete.
type Model interface {
	Complete(ctx context.Context, prompt *Prompt, temperature float64) (string, error)
	Name() string
}

// Source is one retrieved chunk as shown to the model.
type Source struct {
	Label   string
	Content string
}

// Prompt is the structured input to a model.
type Prompt struct {
	System   string
	Question string
	Sources  []Source
}

// User renders the user turn: the numbered sources followed by the question.
func (p *Prompt) User() string {
	var b strings.Builder
	b.WriteString("Sources:\n")
	for i, s := range p.Sources {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, s.Label, strings.TrimSpace(s.Content))
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(strings.TrimSpace(p.Question))
	b.WriteString("\nAnswer:")
	return b.String()
}

// Options configure a model provider.
type Options struct {
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

// Factory creates a Model from options.
type Factory func(Options) (Model, error)

// NewRegistry returns a registry with the built-in model providers.
func NewRegistry() *registry.Registry[Factory] {
	r := registry.New[Factory]("model")
	r.Register("openai", func(o Options) (Model, error) {
		m, err := NewOpenAIModel(o)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
	r.Register("debug", func(Options) (Model, error) { return NewDebugModel(), nil })
	return r
}
