package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/llm"
	"github.com/hyperjump/tanya/internal/qa"
	"github.com/hyperjump/tanya/internal/reader"
	"github.com/hyperjump/tanya/internal/registry"
	"github.com/hyperjump/tanya/internal/session"
)

const gitBook = "Git is a distributed version control system. Every clone holds the full history.\f" +
	"A branch in Git is a lightweight movable pointer to a commit. <script>alert(1)</script>"

type failingModel struct{}

func (failingModel) Complete(ctx context.Context, p *llm.Prompt, t float64) (string, error) {
	return "", &llm.ModelInvocationError{Model: "failing", Err: errors.New("upstream unavailable")}
}

func (failingModel) Name() string { return "failing" }

func newTestServer(t *testing.T, mutate func(*config.Config), opts ...session.Option) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progit.txt")
	if err := os.WriteFile(path, []byte(gitBook), 0600); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	cfg.Document.Path = path
	cfg.Embedding.Provider = "debug"
	cfg.Embedding.Dimensions = 64
	cfg.Model.Provider = "debug"
	cfg.Chunking.Size = 100
	if mutate != nil {
		mutate(cfg)
	}
	config.ApplyDefaults(cfg)

	sess, err := session.New(cfg, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	if err := sess.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return NewServer(sess, cfg, nil)
}

func do(t *testing.T, h http.Handler, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleQuery(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	w := do(t, h, http.MethodPost, "/api/v1/query", []byte(`{"query":"What is Git?","return_all":true}`), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		ID      string `json:"id"`
		Answer  string `json:"answer"`
		Sources []struct {
			Chunk struct {
				Page int `json:"page"`
			} `json:"chunk"`
			Score float64 `json:"score"`
		} `json:"sources"`
		TookMS *int64 `json:"took_ms"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.ID == "" || out.Answer == "" || len(out.Sources) == 0 || out.TookMS == nil {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestHandleQuery_errors(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"empty query", `{"query":"   "}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/v1/query", []byte(tt.body), "application/json")
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandleQuery_modelFailureIsBadGateway(t *testing.T) {
	models := registry.New[llm.Factory]("model")
	models.Register("debug", func(llm.Options) (llm.Model, error) { return failingModel{}, nil })
	h := newTestServer(t, nil, session.WithModelRegistry(models)).Handler()

	w := do(t, h, http.MethodPost, "/api/v1/query", []byte(`{"query":"What is Git?"}`), "application/json")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status: got %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), "upstream unavailable") {
		t.Errorf("body: %s", w.Body.String())
	}
}

func TestHandleIndex(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	w := do(t, h, http.MethodGet, "/", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"<form", "<textarea", "<details>", "progit.txt", "distributed version control"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("document text must be escaped")
	}
}

func TestHandleIndex_showsLoadFailure(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name: "missing api key",
			file: "progit.txt",
			mutate: func(c *config.Config) {
				c.Embedding.Provider = "openai"
				c.Embedding.APIKeyEnv = "OPENAI_API_KEY"
			},
			want: "Please set an API key",
		},
		{
			name: "unsupported format",
			file: "x.bin",
			want: "unsupported file format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(gitBook), 0600); err != nil {
				t.Fatal(err)
			}
			cfg := &config.Config{}
			cfg.Document.Path = path
			cfg.Embedding.Provider = "debug"
			cfg.Model.Provider = "debug"
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			config.ApplyDefaults(cfg)
			sess, err := session.New(cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer sess.Close()
			if err := sess.Load(context.Background()); err == nil {
				t.Fatal("expected Load to fail")
			}
			h := NewServer(sess, cfg, nil).Handler()

			if body := do(t, h, http.MethodGet, "/", nil, "").Body.String(); !strings.Contains(body, tt.want) {
				t.Errorf("page should show %q", tt.want)
			}
			w := do(t, h, http.MethodGet, "/api/v1/status", nil, "")
			var st struct {
				Session session.Status `json:"session"`
			}
			if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
				t.Fatal(err)
			}
			if len(st.Session.Errors) == 0 || !strings.Contains(strings.Join(st.Session.Errors, " "), tt.want) {
				t.Errorf("status errors = %v, want %q", st.Session.Errors, tt.want)
			}
		})
	}
}

func TestHandleIndex_hideFullDocument(t *testing.T) {
	hide := false
	h := newTestServer(t, func(c *config.Config) { c.Query.ShowFullDoc = &hide }).Handler()
	body := do(t, h, http.MethodGet, "/", nil, "").Body.String()
	if strings.Contains(body, "<details>") {
		t.Error("full document should be hidden when show_full_doc is false")
	}
}

func TestHandleAsk(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	form := url.Values{"query": {"What is a branch?"}}
	w := do(t, h, http.MethodPost, "/", []byte(form.Encode()), "application/x-www-form-urlencoded")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<h4>Answer</h4>") || !strings.Contains(body, "<h4>Sources</h4>") {
		t.Error("answer and sources sections expected")
	}
	if !strings.Contains(body, "<mark>branch</mark>") {
		t.Error("query terms should be highlighted in sources")
	}
}

func TestHandleAsk_emptyQueryShowsMessage(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	form := url.Values{"query": {"  "}}
	w := do(t, h, http.MethodPost, "/", []byte(form.Encode()), "application/x-www-form-urlencoded")
	body := w.Body.String()
	if !strings.Contains(body, "Please enter a question!") {
		t.Error("validation message expected")
	}
	if strings.Contains(body, "<h4>Answer</h4>") {
		t.Error("no query should run on validation failure")
	}
}

func TestHandleDocumentAndStatus(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	w := do(t, h, http.MethodGet, "/api/v1/document", nil, "")
	var doc struct {
		Name  string `json:"name"`
		Pages []struct {
			Number int `json:"number"`
		} `json:"pages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.Name != "progit.txt" || len(doc.Pages) != 2 {
		t.Errorf("unexpected document: %+v", doc)
	}

	w = do(t, h, http.MethodGet, "/api/v1/status", nil, "")
	var st struct {
		Session session.Status         `json:"session"`
		Config  map[string]interface{} `json:"config"`
	}
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if !st.Session.Loaded || st.Session.Chunks == 0 || st.Config["return_all_chunks"] != true {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestHandleReload(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.Handler()
	if w := do(t, h, http.MethodPost, "/api/v1/reload", nil, ""); w.Code != http.StatusOK {
		t.Errorf("reload: got %d", w.Code)
	}
	if err := os.WriteFile(srv.config.Document.Path, []byte(" "), 0600); err != nil {
		t.Fatal(err)
	}
	if w := do(t, h, http.MethodPost, "/api/v1/reload", nil, ""); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("reload of blank document: got %d, want 422", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	if w := do(t, h, http.MethodGet, "/health", nil, ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}
	_ = do(t, h, http.MethodGet, "/health", nil, "")
	w := do(t, h, http.MethodGet, "/metrics", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "tanya_http_requests_total") {
		t.Errorf("metrics: %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&session.ValidationError{}, http.StatusBadRequest},
		{qa.ErrEmptyQuery, http.StatusBadRequest},
		{&reader.FileReadError{Name: "a", Err: reader.ErrNoText}, http.StatusUnprocessableEntity},
		{&reader.FileSizeError{Name: "a", Limit: 1}, http.StatusUnprocessableEntity},
		{session.ErrNotLoaded, http.StatusServiceUnavailable},
		{&embedding.EmbeddingError{Provider: "p", Err: errors.New("x")}, http.StatusBadGateway},
		{&llm.ModelInvocationError{Model: "m", Err: errors.New("x")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
