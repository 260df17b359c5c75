package indexer

import (
	"errors"
	"fmt"
)

// ErrNoChunks is returned when there is nothing to index.
var ErrNoChunks = errors.New("no chunks to index")

// IndexBuildError means the vector store could not be created or populated.
// Embedding provider failures are not re-typed; they surface as *embedding.EmbeddingError.
type IndexBuildError struct {
	Store string
	Err   error
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("failed to build %s index: %v", e.Store, e.Err)
}

func (e *IndexBuildError) Unwrap() error { return e.Err }
