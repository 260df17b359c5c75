package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is an exact in-memory store. Vectors live in one row-major slab
// and a query scores every row with a single matrix-vector product.
type MemoryIndex struct {
	mu         sync.RWMutex
	dimensions int
	ids        []string
	seen       map[string]struct{}
	slab       []float32
}

// NewMemoryIndex creates an empty store for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		seen:       make(map[string]struct{}),
	}, nil
}

// Type returns "memory".
func (m *MemoryIndex) Type() string { return string(IndexTypeMemory) }

// Add appends a batch; a rejected batch leaves the index unchanged.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkBatch(ids, vectors, m.dimensions, m.seen); err != nil {
		return err
	}
	for i, id := range ids {
		m.ids = append(m.ids, id)
		m.seen[id] = struct{}{}
		m.slab = append(m.slab, vectors[i]...)
	}
	return nil
}

// Search returns the k best rows by inner product. Ties keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, &DimensionError{Got: len(query), Want: m.dimensions}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.ids)
	if k <= 0 || n == 0 {
		return nil, nil
	}

	scores := make([]float32, n)
	scoreRows(m.slab, n, m.dimensions, query, scores)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	if k > n {
		k = n
	}
	results := make([]*VectorResult, k)
	for i, row := range order[:k] {
		results[i] = &VectorResult{ID: m.ids[row], Score: float64(scores[row])}
	}
	return results, nil
}

// Size returns the number of stored vectors.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int { return m.dimensions }

// Close is a no-op.
func (m *MemoryIndex) Close() error { return nil }
