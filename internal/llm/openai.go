package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hyperjump/tanya/internal/metrics"
)

// Defaults for the OpenAI chat provider.
const (
	DefaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAITimeout = 60 * time.Second
)

// OpenAIModel calls the chat completions endpoint.
type OpenAIModel struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAIModel creates a chat model. The client never retries.
func NewOpenAIModel(opts Options) (*OpenAIModel, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai model: API key is required")
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
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
	return &OpenAIModel{
		client:    openai.NewClient(reqOpts...),
		model:     model,
		maxTokens: opts.MaxTokens,
	}, nil
}

// Complete sends the system and user turns and returns the first choice.
func (m *OpenAIModel) Complete(ctx context.Context, prompt *Prompt, temperature float64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User()),
		},
		Temperature: openai.Float(temperature),
	}
	if m.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(m.maxTokens))
	}

	start := time.Now()
	resp, err := m.client.Chat.Completions.New(ctx, params)
	metrics.ObserveProvider("model", m.Name(), start)
	if err != nil {
		return "", &ModelInvocationError{Model: m.Name(), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ModelInvocationError{Model: m.Name(), Err: ErrEmptyResponse}
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", &ModelInvocationError{Model: m.Name(), Err: ErrEmptyResponse}
	}
	return answer, nil
}

// Name returns "openai/<model>".
func (m *OpenAIModel) Name() string { return "openai/" + m.model }
