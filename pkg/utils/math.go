package utils

import "gonum.org/v1/gonum/blas/gonum"

var blas32 = gonum.Implementation{}

// NormalizeL2 scales x in place to unit length. A zero vector is left as is.
func NormalizeL2(x []float32) {
	if len(x) == 0 {
		return
	}
	norm := blas32.Snrm2(len(x), x, 1)
	if norm == 0 {
		return
	}
	blas32.Sscal(len(x), 1/norm, x, 1)
}
