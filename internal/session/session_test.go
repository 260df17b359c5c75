package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/llm"
	"github.com/hyperjump/tanya/internal/qa"
	"github.com/hyperjump/tanya/internal/reader"
	"github.com/hyperjump/tanya/internal/registry"
	"github.com/hyperjump/tanya/internal/validate"
)

const gitBook = "Git is a distributed version control system. Every clone holds the full history of the project.\f" +
	"A branch in Git is a lightweight movable pointer to a commit. Merging joins two branches together."

type countingEmbedder struct {
	*embedding.DebugEmbedder
	batches *int64
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt64(c.batches, 1)
	return c.DebugEmbedder.EmbedBatch(ctx, texts)
}

func writeDoc(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "progit.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func debugConfig(t *testing.T, path string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Document.Path = path
	cfg.Embedding.Provider = "debug"
	cfg.Embedding.Dimensions = 64
	cfg.Model.Provider = "debug"
	cfg.Chunking.Size = 80
	config.ApplyDefaults(cfg)
	return cfg
}

func TestSession_LoadAndAsk(t *testing.T) {
	s, err := New(debugConfig(t, writeDoc(t, t.TempDir(), gitBook)))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	doc := s.Document()
	if doc == nil || len(doc.Pages) != 2 || doc.Name != "progit.txt" {
		t.Fatalf("unexpected document: %+v", doc)
	}

	res, err := s.Ask(context.Background(), s.DefaultRequest("What is Git?"))
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if strings.TrimSpace(res.Answer) == "" || len(res.Sources) == 0 {
		t.Errorf("unexpected result: %+v", res)
	}

	st := s.Status()
	if !st.Loaded || st.Chunks != len(s.Chunked().Chunks) || st.VectorStore != "memory" || st.Model != "debug" {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestSession_missingCredentialHaltsBeforeReader(t *testing.T) {
	cfg := debugConfig(t, filepath.Join(t.TempDir(), "does-not-exist.pdf"))
	cfg.Model.Provider = "openai"
	cfg.Model.APIKeyEnv = "TANYA_SESSION_TEST_KEY"
	t.Setenv("TANYA_SESSION_TEST_KEY", "")

	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	err = s.Load(context.Background())
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(valErr.Failures) != 1 || valErr.Failures[0].Check != validate.CheckAPIKey {
		t.Errorf("unexpected failures: %+v", valErr.Failures)
	}
	var readErr *reader.FileReadError
	if errors.As(err, &readErr) {
		t.Error("reader must not run when the credential is missing")
	}
	if s.Document() != nil {
		t.Error("no document should be loaded")
	}
	if msgs := s.LoadErrors(); len(msgs) != 1 || msgs[0] != valErr.Failures[0].Message {
		t.Errorf("LoadErrors() = %v, want the credential message", msgs)
	}
}

func TestSession_badKeyFormat(t *testing.T) {
	cfg := debugConfig(t, "unused.pdf")
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKeyEnv = "TANYA_SESSION_TEST_KEY"
	t.Setenv("TANYA_SESSION_TEST_KEY", "not-a-key")
	s, _ := New(cfg)
	var valErr *ValidationError
	if err := s.Load(context.Background()); !errors.As(err, &valErr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestSession_readErrors(t *testing.T) {
	dir := t.TempDir()
	t.Run("missing file", func(t *testing.T) {
		s, _ := New(debugConfig(t, filepath.Join(dir, "missing.txt")))
		var readErr *reader.FileReadError
		if err := s.Load(context.Background()); !errors.As(err, &readErr) {
			t.Errorf("expected FileReadError, got %v", err)
		}
	})
	t.Run("too large", func(t *testing.T) {
		cfg := debugConfig(t, writeDoc(t, dir, gitBook))
		cfg.Document.MaxBytes = 10
		s, _ := New(cfg)
		var sizeErr *reader.FileSizeError
		if err := s.Load(context.Background()); !errors.As(err, &sizeErr) {
			t.Errorf("expected FileSizeError, got %v", err)
		}
	})
}

func TestSession_unchangedDocumentSkipsWork(t *testing.T) {
	var batches int64
	embedders := registry.New[embedding.Factory]("embedding provider")
	embedders.Register("debug", func(o embedding.Options) (embedding.Embedder, error) {
		return &countingEmbedder{DebugEmbedder: embedding.NewDebugEmbedder(o.Dimensions), batches: &batches}, nil
	})
	s, err := New(debugConfig(t, writeDoc(t, t.TempDir(), gitBook)), WithEmbeddingRegistry(embedders))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	first := s.Status()
	calls := atomic.LoadInt64(&batches)

	if err := s.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt64(&batches); got != calls {
		t.Errorf("reload of identical bytes embedded again: %d -> %d batches", calls, got)
	}
	if !s.Status().LoadedAt.Equal(*first.LoadedAt) {
		t.Error("index should not have been rebuilt")
	}
}

func TestSession_reloadChangedDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, gitBook)
	s, _ := New(debugConfig(t, path))
	defer s.Close()
	ctx := context.Background()
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	before := s.Document().Fingerprint

	writeDoc(t, dir, gitBook+"\fThe staging area holds changes for the next commit.")
	if err := s.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	doc := s.Document()
	if doc.Fingerprint == before || len(doc.Pages) != 3 {
		t.Errorf("document not reloaded: %d pages", len(doc.Pages))
	}
	st := s.Status()
	if st.CacheHits == 0 {
		t.Error("unchanged chunks should come from the embedding memo")
	}
}

func TestSession_failedReloadKeepsIndex(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, gitBook)
	s, _ := New(debugConfig(t, path))
	defer s.Close()
	ctx := context.Background()
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	writeDoc(t, dir, "   \n  ")
	if err := s.Reload(ctx); !errors.Is(err, reader.ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
	if s.Document() == nil || len(s.Document().Pages) != 2 {
		t.Error("previous document should stay loaded")
	}
	if _, err := s.Ask(ctx, s.DefaultRequest("What is a branch?")); err != nil {
		t.Errorf("Ask after failed reload: %v", err)
	}
	if msgs := s.Status().Errors; len(msgs) != 1 || !strings.Contains(msgs[0], "no extractable text") {
		t.Errorf("status errors = %v, want the read failure", msgs)
	}

	writeDoc(t, dir, gitBook+"More text.")
	if err := s.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if msgs := s.LoadErrors(); msgs != nil {
		t.Errorf("errors should clear after a successful load: %v", msgs)
	}
}

func TestSession_statusBeforeLoad(t *testing.T) {
	s, _ := New(debugConfig(t, writeDoc(t, t.TempDir(), gitBook)))
	defer s.Close()
	data, err := json.Marshal(s.Status())
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"loaded_at", "built_at", "errors"} {
		if strings.Contains(string(data), field) {
			t.Errorf("unloaded status should omit %s: %s", field, data)
		}
	}
}

func TestSession_Ask(t *testing.T) {
	s, _ := New(debugConfig(t, writeDoc(t, t.TempDir(), gitBook)))
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Ask(ctx, s.DefaultRequest("What is Git?")); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("before load: %v", err)
	}
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	for _, req := range []*qa.Request{nil, {Query: ""}, {Query: "  \n"}} {
		var valErr *ValidationError
		if _, err := s.Ask(ctx, req); !errors.As(err, &valErr) || valErr.Failures[0].Check != validate.CheckQuery {
			t.Errorf("Ask(%+v) = %v, want query validation failure", req, err)
		}
	}
}

func TestNew_invalidChunking(t *testing.T) {
	cfg := debugConfig(t, "x.txt")
	cfg.Chunking.Overlap = cfg.Chunking.Size
	if _, err := New(cfg); err == nil {
		t.Error("expected error for overlap >= size")
	}
}

type promptRecorder struct {
	system string
}

func (p *promptRecorder) Complete(ctx context.Context, prompt *llm.Prompt, temperature float64) (string, error) {
	p.system = prompt.System
	return "ok", nil
}

func (p *promptRecorder) Name() string { return "recorder" }

func TestSession_systemPromptFromConfig(t *testing.T) {
	rec := &promptRecorder{}
	models := registry.New[llm.Factory]("model provider")
	models.Register("debug", func(llm.Options) (llm.Model, error) { return rec, nil })
	cfg := debugConfig(t, writeDoc(t, t.TempDir(), gitBook))
	cfg.Model.SystemPrompt = "Answer in one sentence."
	s, err := New(cfg, WithModelRegistry(models))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Ask(ctx, s.DefaultRequest("What is Git?")); err != nil {
		t.Fatal(err)
	}
	if rec.system != cfg.Model.SystemPrompt {
		t.Errorf("system prompt = %q, want %q", rec.system, cfg.Model.SystemPrompt)
	}
}
