package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/tanya/internal/embedding"
)

var _ embedding.Store = (*SQLiteEmbeddingStore)(nil)

func TestSQLiteEmbeddingStore_LoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "embeddings.db")
	store, err := NewSQLiteEmbeddingStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, ok, err := store.Load(ctx, "missing"); err != nil || ok {
		t.Fatalf("Load(missing) = ok %v, err %v", ok, err)
	}

	vec := []float32{0.5, -1.25, 3, 0}
	if err := store.Save(ctx, "k1", vec); err != nil {
		t.Fatal(err)
	}
	got, ok, err := store.Load(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Load(k1) = ok %v, err %v", ok, err)
	}
	if len(got) != len(vec) {
		t.Fatalf("got %d dims, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("dim %d: got %v, want %v", i, got[i], vec[i])
		}
	}

	if err := store.Save(ctx, "k1", []float32{1}); err != nil {
		t.Fatal(err)
	}
	got, _, _ = store.Load(ctx, "k1")
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("Save should replace, got %v", got)
	}
	if n, err := store.Count(ctx); err != nil || n != 1 {
		t.Errorf("Count() = %d, %v", n, err)
	}
}

func TestSQLiteEmbeddingStore_persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.db")
	ctx := context.Background()
	store, err := NewSQLiteEmbeddingStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "k", []float32{1, 2}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := NewSQLiteEmbeddingStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if _, ok, _ := reopened.Load(ctx, "k"); !ok {
		t.Error("embedding should survive reopen")
	}
	if size, err := DiskUsageBytes(SQLiteFiles(path)...); err != nil || size == 0 {
		t.Errorf("DiskUsageBytes = %d, %v", size, err)
	}
}

func TestSQLiteEmbeddingStore_PruneBefore(t *testing.T) {
	store, err := NewSQLiteEmbeddingStore(filepath.Join(t.TempDir(), "e.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	_ = store.Save(ctx, "old", []float32{1})
	n, err := store.PruneBefore(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Errorf("PruneBefore = %d, %v", n, err)
	}
	if c, _ := store.Count(ctx); c != 0 {
		t.Errorf("Count after prune = %d", c)
	}
}

func TestSQLiteEmbeddingStore_withCachedEmbedder(t *testing.T) {
	store, err := NewSQLiteEmbeddingStore(filepath.Join(t.TempDir(), "e.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	cached := embedding.NewCachedEmbedder(embedding.NewDebugEmbedder(16), store)
	first, err := cached.EmbedBatch(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := store.Count(ctx); n != 2 {
		t.Errorf("stored %d embeddings, want 2", n)
	}
	second, err := cached.EmbedBatch(ctx, []string{"beta", "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	for i := range first[0] {
		if first[0][i] != second[1][i] {
			t.Fatal("memoized vector differs from original")
		}
	}
}

func TestDecodeVector_corrupt(t *testing.T) {
	if _, err := decodeVector([]byte{1, 2, 3}, 1); err == nil {
		t.Error("expected error for short blob")
	}
}
