package storage

import "math"

// CosineDistance returns 1 minus the cosine similarity of a and b.
// 0 means identical direction, 1 orthogonal, 2 opposite. Vectors of
// mismatched or zero length are maximally distant.
func CosineDistance(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 2
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}

	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}

	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}
