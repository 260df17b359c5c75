package vector

import "github.com/hyperjump/tanya/internal/registry"

// IndexType names a vector store implementation.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search. Good for a single document.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeDebug is an alias of memory used by the debug pipeline.
	IndexTypeDebug IndexType = "debug"
	// IndexTypeFAISS uses FAISS. Requires the FAISS library and -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// Factory builds an empty index for vectors of the given dimension.
type Factory func(dimensions int) (VectorIndex, error)

// NewRegistry returns a registry with the built-in stores.
func NewRegistry() *registry.Registry[Factory] {
	r := registry.New[Factory]("vector store")
	memory := func(dimensions int) (VectorIndex, error) {
		idx, err := NewMemoryIndex(dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
	r.Register(string(IndexTypeMemory), memory)
	r.Register(string(IndexTypeDebug), memory)
	r.Register(string(IndexTypeFAISS), func(dimensions int) (VectorIndex, error) {
		idx, err := NewFAISSIndex(dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	})
	return r
}

// NewVectorIndex creates a vector index of the named type. An empty name means memory.
func NewVectorIndex(indexType string, dimensions int) (VectorIndex, error) {
	if indexType == "" {
		indexType = string(IndexTypeMemory)
	}
	factory, err := NewRegistry().Lookup(indexType)
	if err != nil {
		return nil, err
	}
	return factory(dimensions)
}

// IsFAISSAvailable reports whether FAISS support is compiled in (-tags=faiss).
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
