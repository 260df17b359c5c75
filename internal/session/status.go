package session

import "time"

// Status summarizes what the session has loaded.
type Status struct {
	Loaded       bool       `json:"loaded"`
	Path         string     `json:"path"`
	Document     string     `json:"document,omitempty"`
	Fingerprint  string     `json:"fingerprint,omitempty"`
	Pages        int        `json:"pages"`
	Chunks       int        `json:"chunks"`
	ChunkSize    int        `json:"chunk_size"`
	Overlap      int        `json:"overlap"`
	Embedding    string     `json:"embedding,omitempty"`
	VectorStore  string     `json:"vector_store,omitempty"`
	KeywordIndex bool       `json:"keyword_index"`
	Model        string     `json:"model,omitempty"`
	BuiltAt      *time.Time `json:"built_at,omitempty"`
	LoadedAt     *time.Time `json:"loaded_at,omitempty"`
	CacheHits    int64      `json:"embedding_cache_hits"`
	CacheMisses  int64      `json:"embedding_cache_misses"`
	Errors       []string   `json:"errors,omitempty"`
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	st := Status{
		Path:      s.cfg.Document.Path,
		ChunkSize: s.chunker.Size(),
		Overlap:   s.chunker.Overlap(),
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st.Errors = errorMessages(s.loadErr)
	if s.embedder != nil {
		st.Embedding = s.embedder.Name()
		st.CacheHits, st.CacheMisses = s.embedder.Stats()
	}
	if s.engine != nil {
		st.Model = s.engine.Model()
	}
	if s.state != nil {
		doc := s.state.chunked.Document
		st.Loaded = true
		st.Document = doc.Name
		st.Fingerprint = doc.Fingerprint
		st.Pages = len(doc.Pages)
		st.Chunks = s.state.folder.Size()
		st.VectorStore = s.state.folder.StoreType()
		st.KeywordIndex = s.state.folder.HasKeywordIndex()
		builtAt := s.state.folder.BuiltAt()
		loadedAt := s.state.loadedAt
		st.BuiltAt = &builtAt
		st.LoadedAt = &loadedAt
	}
	return st
}
