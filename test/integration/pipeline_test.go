// Package integration runs the whole pipeline with the deterministic debug providers.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/chunker"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/llm"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/qa"
	"github.com/hyperjump/tanya/internal/reader"
	"github.com/hyperjump/tanya/internal/server"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/internal/storage"
)

const gitIntro = "Git is a distributed version control system. Every clone is a full repository with complete history. " +
	"A commit records a snapshot of the project. Branches are cheap pointers to commits, so creating one is fast. " +
	"The staging area lets you choose exactly which changes go into the next commit."

func TestIntegration_Pipeline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "progit.md")
	if err := os.WriteFile(path, []byte(gitIntro), 0600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	doc, err := reader.New().ReadFile(path, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	c, err := chunker.New(120, 20)
	if err != nil {
		t.Fatal(err)
	}
	chunked, err := c.Chunk(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunked.Chunks) < 2 {
		t.Fatalf("chunks = %d, want several", len(chunked.Chunks))
	}
	if got := chunker.Reconstruct(chunked.Chunks, 20); got != doc.Pages[0].Content {
		t.Errorf("reconstructed text differs from page text")
	}

	folder, err := indexer.NewIndexer(embedding.NewDebugEmbedder(128), "memory",
		indexer.WithKeywordIndex(true),
		indexer.WithLogger(zap.NewNop()),
	).EmbedFiles(ctx, []*models.ChunkedDocument{chunked})
	if err != nil {
		t.Fatal(err)
	}
	defer folder.Close()

	engine := qa.NewEngine(llm.NewDebugModel(), qa.WithKeywordWeight(0.3))
	result, err := engine.Query(ctx, folder, &qa.Request{Query: "What is the staging area?", ReturnAll: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.Answer == "" || len(result.Sources) == 0 {
		t.Fatalf("empty result: %+v", result)
	}
	found := false
	for _, src := range result.Sources {
		found = found || strings.Contains(src.Chunk.Content, "staging area")
	}
	if !found {
		t.Error("no retrieved chunk mentions the staging area")
	}
	if !strings.Contains(result.Answer, "["+result.Sources[0].Chunk.Label()+"]") {
		t.Errorf("answer %q does not cite the top source", result.Answer)
	}
}

func TestIntegration_ServeQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "progit.md")
	if err := os.WriteFile(path, []byte(gitIntro), 0600); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	cfg.Document.Path = path
	cfg.Embedding.Provider = "debug"
	cfg.Embedding.Dimensions = 64
	cfg.Model.Provider = "debug"
	cfg.Chunking.Size = 120
	cfg.Chunking.Overlap = 20
	cfg.Cache.Path = filepath.Join(dir, "embeddings.db")
	config.ApplyDefaults(cfg)

	store, err := storage.NewSQLiteEmbeddingStore(cfg.Cache.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	sess, err := session.New(cfg, session.WithEmbeddingStore(store))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	if err := sess.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(server.NewServer(sess, cfg, zap.NewNop()).Handler())
	defer ts.Close()

	body, _ := json.Marshal(map[string]interface{}{"query": "What is Git?", "return_all": true})
	resp, err := http.Post(ts.URL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result models.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Model != "debug" || len(result.Sources) == 0 {
		t.Errorf("unexpected result: %+v", result)
	}

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error("embeddings were not persisted")
	}
}
