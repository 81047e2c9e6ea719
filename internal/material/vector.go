package material

import "math"

// CosineSimilarity returns the raw cosine of the angle between two
// vectors, in [-1, 1]. Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// NormalizedSimilarity maps cosine similarity into 0..1: identical
// vectors score 1.0, orthogonal 0.5, opposite 0.0.
func NormalizedSimilarity(a, b []float32) float64 {
	return (CosineSimilarity(a, b) + 1) / 2
}
