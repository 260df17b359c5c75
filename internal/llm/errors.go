package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is wrapped in a ModelInvocationError when the model returns no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// ModelInvocationError is a failed or malformed language model call.
type ModelInvocationError struct {
	Model string
	Err   error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }
