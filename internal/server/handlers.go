package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/llm"
	"github.com/hyperjump/tanya/internal/qa"
	"github.com/hyperjump/tanya/internal/reader"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/internal/storage"
	"github.com/hyperjump/tanya/internal/vector"
)

type queryRequest struct {
	Query       string   `json:"query"`
	Temperature *float64 `json:"temperature,omitempty"`
	ReturnAll   *bool    `json:"return_all,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req := s.session.DefaultRequest(body.Query)
	if body.Temperature != nil {
		req.Temperature = *body.Temperature
	}
	if body.ReturnAll != nil {
		req.ReturnAll = *body.ReturnAll
	}
	if body.TopK > 0 {
		req.TopK = body.TopK
	}
	s.logger.Debug("query request", zap.String("query", body.Query), zap.Bool("return_all", req.ReturnAll))

	result, err := s.session.Ask(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("query failed", zap.Error(err))
		}
		var valErr *session.ValidationError
		if errors.As(err, &valErr) {
			s.respondJSON(w, status, map[string]interface{}{
				"error":    valErr.Error(),
				"failures": valErr.Failures,
			})
			return
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.session.Document()
	if doc == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no document loaded")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.session.Status()
	resp := map[string]interface{}{
		"session": st,
		"config": map[string]interface{}{
			"embedding_provider": s.config.Embedding.Provider,
			"vector_store":       s.config.VectorStore.Provider,
			"model_provider":     s.config.Model.Provider,
			"temperature":        s.config.Model.Temperature,
			"top_k":              s.config.Query.TopK,
			"return_all_chunks":  s.config.Query.ReturnAllOrDefault(),
			"show_full_doc":      s.config.Query.ShowFullDocOrDefault(),
			"hybrid":             s.config.Query.Hybrid,
			"faiss_available":    vector.IsFAISSAvailable(),
		},
	}
	diskBytes, err := storage.DiskUsageBytes(append([]string{s.config.Document.Path}, storage.SQLiteFiles(s.config.Cache.Path)...)...)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Reload(r.Context()); err != nil {
		s.logger.Error("reload failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "loaded", "session": s.session.Status()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.session.Document() == nil {
		status = "loading"
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var (
		valErr   *session.ValidationError
		readErr  *reader.FileReadError
		sizeErr  *reader.FileSizeError
		embErr   *embedding.EmbeddingError
		modelErr *llm.ModelInvocationError
	)
	switch {
	case errors.As(err, &valErr), errors.Is(err, qa.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.As(err, &readErr), errors.As(err, &sizeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.As(err, &embErr), errors.As(err, &modelErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
