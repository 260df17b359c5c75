package keyword

import (
	"context"
	"testing"

	"github.com/hyperjump/tanya/internal/models"
)

func testChunks() []*models.Chunk {
	mk := func(id, content string, page int) *models.Chunk {
		return &models.Chunk{ID: id, Content: content, Page: page, Metadata: models.NewPageMetadata("git.pdf", page)}
	}
	return []*models.Chunk{
		mk("c1", "Git is a distributed version control system.", 1),
		mk("c2", "Branches in Git are cheap to create and merge.", 2),
		mk("c3", "The Bayes app is referenced in the appendix.", 3),
	}
}

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex()
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	if err := idx.IndexChunks(context.Background(), testChunks()); err != nil {
		t.Fatalf("IndexChunks: %v", err)
	}
	return idx
}

func TestBleveIndex_Search(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	n, err := idx.DocCount()
	if err != nil || n != 3 {
		t.Fatalf("DocCount = %d, %v", n, err)
	}

	results, err := idx.Search(ctx, "version control", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "c1" {
		t.Fatalf("expected c1 first, got %+v", results)
	}

	// standard analyzer, no stemming: "bayes" matches "Bayes"
	results, err = idx.Search(ctx, "bayes", 10, nil)
	if err != nil {
		t.Fatalf("Search bayes: %v", err)
	}
	if len(results) != 1 || results[0].ID != "c3" {
		t.Errorf("got %+v", results)
	}

	results, _ = idx.Search(ctx, "git", 1, nil)
	if len(results) != 1 {
		t.Errorf("limit not applied: %d results", len(results))
	}
	results, _ = idx.Search(ctx, "git", 0, nil)
	if len(results) != 0 {
		t.Errorf("zero limit should return nothing, got %d", len(results))
	}
}

func TestBleveIndex_SearchFuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	exact, err := idx.Search(ctx, "brnaches", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(exact) != 0 {
		t.Errorf("misspelling should not match exactly, got %+v", exact)
	}
	fuzzy, err := idx.Search(ctx, "brnaches", 10, &SearchOptions{FuzzyEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy) == 0 || fuzzy[0].ID != "c2" {
		t.Errorf("expected fuzzy match on c2, got %+v", fuzzy)
	}
}

func TestTokenizeQuery(t *testing.T) {
	got := tokenizeQuery("What is Git?")
	if len(got) != 3 || got[2] != "git" {
		t.Errorf("got %v", got)
	}
}
