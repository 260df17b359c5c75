//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import (
	"context"
	"errors"
)

// ErrFAISSUnavailable is returned by every FAISSIndex method in builds without FAISS.
var ErrFAISSUnavailable = errors.New("faiss vector store not compiled in: build with CGO_ENABLED=1 -tags=faiss and install libfaiss_c")

// FAISSIndex is a placeholder so the "faiss" store name resolves in every build.
type FAISSIndex struct{}

// NewFAISSIndex always fails without FAISS.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

func (f *FAISSIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	return ErrFAISSUnavailable
}

func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	return nil, ErrFAISSUnavailable
}

func (f *FAISSIndex) Size() int       { return 0 }
func (f *FAISSIndex) Dimensions() int { return 0 }
func (f *FAISSIndex) Type() string    { return string(IndexTypeFAISS) }
func (f *FAISSIndex) Close() error    { return nil }
