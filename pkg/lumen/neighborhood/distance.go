package neighborhood

import "math"

// CosineDistance returns 1 minus the cosine similarity of a and b.
// Vectors must be the same length (caller's responsibility). A
// zero-norm vector is maximally distant from everything.
func CosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/math.Sqrt(na*nb)
}
