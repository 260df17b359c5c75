package llm

import (
	"context"
	"fmt"
	"strings"
)

// DebugModel answers offline and deterministically by quoting the first sentence
// of the top-ranked source and citing its label.
type DebugModel struct{}

// NewDebugModel returns a DebugModel.
func NewDebugModel() *DebugModel { return &DebugModel{} }

// Complete ignores temperature.
func (m *DebugModel) Complete(ctx context.Context, prompt *Prompt, temperature float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &ModelInvocationError{Model: m.Name(), Err: err}
	}
	if len(prompt.Sources) == 0 {
		return "I don't know. No sources were found for this question.", nil
	}
	top := prompt.Sources[0]
	return fmt.Sprintf("%s [%s]", firstSentence(top.Content), top.Label), nil
}

// Name returns "debug".
func (m *DebugModel) Name() string { return "debug" }

func firstSentence(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for _, sep := range []string{". ", "? ", "! "} {
		if i := strings.Index(s, sep); i >= 0 {
			return s[:i+1]
		}
	}
	return s
}
