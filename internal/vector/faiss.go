//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"
)

// FAISSIndex is a chunk store backed by a FAISS IndexFlatIP (exact inner product).
// FAISS assigns sequential labels on add, so labels index into ids directly.
type FAISSIndex struct {
	mu         sync.RWMutex
	index      *C.FaissIndexFlatIP
	dimensions int
	ids        []string
	seen       map[string]struct{}
}

// NewFAISSIndex creates an empty flat inner-product index.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	var index *C.FaissIndexFlatIP
	if ret := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dimensions)); ret != 0 {
		return nil, faissError("create index")
	}
	return &FAISSIndex{
		index:      index,
		dimensions: dimensions,
		seen:       make(map[string]struct{}),
	}, nil
}

func faissError(op string) error {
	msg := "unknown error"
	if cErr := C.faiss_get_last_error(); cErr != nil {
		msg = C.GoString(cErr)
	}
	return fmt.Errorf("faiss: failed to %s: %s", op, msg)
}

// Add appends a batch; a rejected batch leaves the index unchanged.
func (f *FAISSIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index == nil {
		return fmt.Errorf("faiss: index closed")
	}
	if err := checkBatch(ids, vectors, f.dimensions, f.seen); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	flat := make([]float32, 0, len(vectors)*f.dimensions)
	for _, vec := range vectors {
		flat = append(flat, vec...)
	}
	if ret := C.faiss_Index_add(f.index, C.idx_t(len(vectors)), (*C.float)(unsafe.Pointer(&flat[0]))); ret != 0 {
		return faissError("add vectors")
	}
	for _, id := range ids {
		f.ids = append(f.ids, id)
		f.seen[id] = struct{}{}
	}
	return nil
}

// Search returns the k best chunks by inner product, best first.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != f.dimensions {
		return nil, &DimensionError{Got: len(query), Want: f.dimensions}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.index == nil {
		return nil, fmt.Errorf("faiss: index closed")
	}
	if k > len(f.ids) {
		k = len(f.ids)
	}
	if k <= 0 {
		return nil, nil
	}

	scores := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&scores[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, faissError("search")
	}

	results := make([]*VectorResult, 0, k)
	for i, label := range labels {
		// -1 marks an unfilled slot
		if label < 0 || int(label) >= len(f.ids) {
			continue
		}
		results = append(results, &VectorResult{ID: f.ids[label], Score: float64(scores[i])})
	}
	return results, nil
}

// Size returns the number of stored chunks.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimensions returns the vector dimension.
func (f *FAISSIndex) Dimensions() int { return f.dimensions }

// Type returns "faiss".
func (f *FAISSIndex) Type() string { return string(IndexTypeFAISS) }

// Close frees the native index. It is safe to call more than once.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}
