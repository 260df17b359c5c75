//go:build faiss && cgo
// +build faiss,cgo

package vector

import (
	"context"
	"errors"
	"testing"
)

func TestFAISSIndex_AddSearch(t *testing.T) {
	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, []string{"p1-1", "p1-2", "p2-1"}, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d, want 3", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "p1-1" || results[1].ID != "p1-2" {
		t.Errorf("order = %s, %s; want p1-1, p1-2", results[0].ID, results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted by score")
	}
}

func TestFAISSIndex_SearchEmpty(t *testing.T) {
	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestFAISSIndex_rejectedBatchLeavesIndexUnchanged(t *testing.T) {
	idx, err := NewFAISSIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	err = idx.Add(context.Background(), []string{"a", "b"}, [][]float32{{1, 0}, {1, 0, 0}})
	var dim *DimensionError
	if !errors.As(err, &dim) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("Size=%d after rejected batch, want 0", idx.Size())
	}
}

func TestFAISSIndex_closed(t *testing.T) {
	idx, err := NewFAISSIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	_ = idx.Close()
	_ = idx.Close()
	if err := idx.Add(context.Background(), []string{"a"}, [][]float32{{1, 0}}); err == nil {
		t.Error("Add after Close should fail")
	}
}

func TestFAISSIndex_Duplicate(t *testing.T) {
	idx, err := NewFAISSIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x"}, [][]float32{{1, 0}})
	err = idx.Add(ctx, []string{"x"}, [][]float32{{0, 1}})
	var dup *DuplicateIDError
	if !errors.As(err, &dup) {
		t.Errorf("expected DuplicateIDError, got %v", err)
	}
}
