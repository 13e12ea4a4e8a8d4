// ABOUTME: Similarity provider interfaces consumed by the alignment engine.
// ABOUTME: Splits embedding from comparison so vectors can be cached per element.
package embeddings

import "context"

// Embedder generates vector embeddings for identified texts.
type Embedder interface {
	// Embed returns one vector per id. ids and texts are parallel.
	Embed(ctx context.Context, ids, texts []string) (map[string][]float32, error)

	// Dimension returns the dimensionality of the output vectors, or 0 when it
	// is only known after the first call.
	Dimension() int
}

// Comparer turns two sets of vectors into a similarity matrix.
type Comparer interface {
	Cosine(a, b [][]float32) ([][]float64, error)
}

// Provider is an embedder that can also compare its own vectors.
type Provider interface {
	Embedder
	Comparer
}

// SimilarityFunc scores every text in a against every text in b in one step.
// It suits providers with nothing worth caching between calls.
type SimilarityFunc func(ctx context.Context, a, b []string) ([][]float64, error)

// CosineComparer implements Comparer with CosineMatrix. Embedders embed it to
// become a Provider.
type CosineComparer struct{}

// Cosine implements Comparer.
func (CosineComparer) Cosine(a, b [][]float32) ([][]float64, error) {
	return CosineMatrix(a, b)
}
