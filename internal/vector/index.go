// Package vector provides vector stores for similarity search over chunk embeddings.
package vector

import (
	"context"
	"fmt"
)

// VectorIndex stores vectors under string IDs and returns the nearest ones to a query.
// Vectors are expected to be L2-normalized, so inner product equals cosine similarity.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// VectorResult is a single vector search hit; ID is the chunk ID.
type VectorResult struct {
	ID    string
	Score float64
}

// DimensionError reports a vector whose length does not match the index.
type DimensionError struct {
	Got, Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: got %d, expected %d", e.Got, e.Want)
}

// DuplicateIDError reports an ID that is already present in the index.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate vector id %q", e.ID)
}

// checkBatch validates a batch for an index that already holds the IDs in seen.
// Nothing is stored when it returns an error.
func checkBatch(ids []string, vectors [][]float32, dimensions int, seen map[string]struct{}) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("got %d ids for %d vectors", len(ids), len(vectors))
	}
	batch := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != dimensions {
			return &DimensionError{Got: len(vectors[i]), Want: dimensions}
		}
		if _, dup := seen[id]; dup {
			return &DuplicateIDError{ID: id}
		}
		if _, dup := batch[id]; dup {
			return &DuplicateIDError{ID: id}
		}
		batch[id] = struct{}{}
	}
	return nil
}
