// Package vector provides vector encoding, similarity, and exact nearest-neighbor search.
package vector

import "math"

// InnerProduct returns the inner product of two vectors, or 0 when their lengths differ.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Cosine returns dot(a,b) / (|a| * |b|).
// A zero-norm operand or a non-finite result scores 0 so degenerate vectors still rank.
func Cosine(a, b []float32) float64 {
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	s := InnerProduct(a, b) / (na * nb)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}
