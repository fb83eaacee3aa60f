package signature

import "math"

// CosineSimilarity calculates the cosine similarity between two signature
// vectors. Returns a value between -1.0 (opposite) and 1.0 (identical), or
// 0.0 for mismatched lengths and zero vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RemappedSimilarity maps cosine similarity from [-1,1] onto [0,1] so it
// can be compared against the acceptance threshold and reported as a
// confidence value.
func RemappedSimilarity(a, b []float64) float64 {
	return (CosineSimilarity(a, b) + 1) / 2
}
