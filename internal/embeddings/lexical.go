// ABOUTME: Offline embedder built from stemmed, hashed term frequencies.
// ABOUTME: Deterministic, so it backs tests and runs without a model server.
package embeddings

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/surgebase/porter2"
)

// DefaultLexicalDimension is the hashed feature space size.
const DefaultLexicalDimension = 512

var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// LexicalEmbedder maps text to a signed feature-hashed bag of stemmed words.
type LexicalEmbedder struct {
	CosineComparer
	dim  int
	stem bool
}

// NewLexicalEmbedder creates a lexical embedder. dim <= 0 selects the default.
func NewLexicalEmbedder(dim int, stem bool) *LexicalEmbedder {
	if dim <= 0 {
		dim = DefaultLexicalDimension
	}
	return &LexicalEmbedder{dim: dim, stem: stem}
}

// Dimension implements Embedder.
func (e *LexicalEmbedder) Dimension() int {
	return e.dim
}

// Embed implements Embedder.
func (e *LexicalEmbedder) Embed(ctx context.Context, ids, texts []string) (map[string][]float32, error) {
	if len(ids) != len(texts) {
		return nil, fmt.Errorf("lexical embed: %d ids but %d texts", len(ids), len(texts))
	}
	out := make(map[string][]float32, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[id] = e.vector(texts[i])
	}
	return out, nil
}

func (e *LexicalEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, token := range e.Tokenize(text) {
		h := xxhash.Sum64String(token)
		idx := h % uint64(e.dim)
		if h>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	Normalize(vec)
	return vec
}

// Tokenize lowercases, splits on non-alphanumerics, drops one-rune tokens and
// stems what remains.
func (e *LexicalEmbedder) Tokenize(text string) []string {
	lowered := strings.ToLower(NormalizeText(text))
	raw := tokenSplitPattern.Split(lowered, -1)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if len([]rune(token)) < 2 {
			continue
		}
		if e.stem {
			token = porter2.Stem(token)
		}
		tokens = append(tokens, token)
	}
	return tokens
}
