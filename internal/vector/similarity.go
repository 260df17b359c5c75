package vector

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/gonum"
)

var impl = gonum.Implementation{}

// InnerProduct returns the inner product of two vectors, or 0 when lengths differ.
// For normalized vectors this is the cosine similarity.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return float64(impl.Sdot(len(a), a, 1, b, 1))
}

// scoreRows writes the inner product of query with each of the n rows of the
// row-major matrix rows into scores.
func scoreRows(rows []float32, n, dims int, query, scores []float32) {
	impl.Sgemv(blas.NoTrans, n, dims, 1, rows, dims, query, 1, 0, scores, 1)
}
