// ABOUTME: Cosine similarity helpers for float32 embedding vectors.
// ABOUTME: Accumulates in float64 and treats zero vectors as dissimilar.
package embeddings

import (
	"fmt"
	"math"
)

// CosineSimilarity computes the cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineMatrix compares every vector in a with every vector in b. All vectors
// must share one dimension.
func CosineMatrix(a, b [][]float32) ([][]float64, error) {
	dim := -1
	for _, set := range [][][]float32{a, b} {
		for _, v := range set {
			if dim < 0 {
				dim = len(v)
			}
			if len(v) != dim {
				return nil, fmt.Errorf("vector dimension mismatch: %d vs %d", len(v), dim)
			}
		}
	}

	out := make([][]float64, len(a))
	for i, va := range a {
		out[i] = make([]float64, len(b))
		for j, vb := range b {
			out[i][j] = CosineSimilarity(va, vb)
		}
	}
	return out, nil
}

// Normalize scales v to unit length in place. Zero vectors are left alone.
func Normalize(v []float32) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
