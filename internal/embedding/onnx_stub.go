//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ErrONNXUnavailable is returned by the onnx provider in builds without CGO.
var ErrONNXUnavailable = errors.New("onnx embeddings require CGO_ENABLED=1 and the onnxruntime shared library")

// ONNXEmbedder is a placeholder so the "onnx" provider name resolves in every build.
type ONNXEmbedder struct{}

// NewONNXEmbedder always fails without CGO.
func NewONNXEmbedder(Options) (*ONNXEmbedder, error) {
	return nil, ErrONNXUnavailable
}

func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, &EmbeddingError{Provider: "onnx", Err: ErrONNXUnavailable}
}

func (e *ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, &EmbeddingError{Provider: "onnx", Err: ErrONNXUnavailable}
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }
func (e *ONNXEmbedder) Name() string    { return "onnx" }
func (e *ONNXEmbedder) Close() error    { return nil }
