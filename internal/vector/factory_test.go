package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/tanya/internal/registry"
)

func TestNewVectorIndex(t *testing.T) {
	for _, name := range []string{"memory", "debug", "", "MEMORY"} {
		t.Run(name, func(t *testing.T) {
			idx, err := NewVectorIndex(name, 3)
			if err != nil {
				t.Fatalf("NewVectorIndex(%q): %v", name, err)
			}
			defer idx.Close()
			if err := idx.Add(context.Background(), []string{"a"}, [][]float32{{1, 0, 0}}); err != nil {
				t.Fatalf("Add: %v", err)
			}
			if idx.Size() != 1 || idx.Type() != string(IndexTypeMemory) {
				t.Errorf("Size=%d Type=%s", idx.Size(), idx.Type())
			}
		})
	}
}

func TestNewVectorIndex_unknown(t *testing.T) {
	_, err := NewVectorIndex("chroma", 3)
	var unknown *registry.UnknownError
	if !errors.As(err, &unknown) {
		t.Errorf("expected UnknownError, got %v", err)
	}
}

func TestNewVectorIndex_FAISS(t *testing.T) {
	idx, err := NewVectorIndex("faiss", 3)
	if IsFAISSAvailable() {
		if err != nil {
			t.Fatalf("FAISS available but NewVectorIndex failed: %v", err)
		}
		_ = idx.Close()
		return
	}
	if err == nil {
		t.Error("expected error when FAISS is not compiled in")
	}
}
