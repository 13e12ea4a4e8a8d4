// ABOUTME: Combined similarity provider using edit-distance string metrics.
// ABOUTME: Scores text pairs directly, so there are no vectors to cache.
package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
)

// DefaultFuzzyAlgorithm is used when no algorithm is configured.
const DefaultFuzzyAlgorithm = "jaro-winkler"

var fuzzyAlgorithms = map[string]edlib.Algorithm{
	"levenshtein":         edlib.Levenshtein,
	"damerau-levenshtein": edlib.DamerauLevenshtein,
	"osa":                 edlib.OSADamerauLevenshtein,
	"lcs":                 edlib.Lcs,
	"jaro":                edlib.Jaro,
	"jaro-winkler":        edlib.JaroWinkler,
	"cosine":              edlib.Cosine,
	"jaccard":             edlib.Jaccard,
	"sorensen-dice":       edlib.SorensenDice,
	"qgram":               edlib.Qgram,
}

// FuzzySimilarity compares raw texts with a go-edlib similarity algorithm.
type FuzzySimilarity struct {
	name      string
	algorithm edlib.Algorithm
}

// NewFuzzySimilarity returns a fuzzy provider for the named algorithm.
func NewFuzzySimilarity(name string) (*FuzzySimilarity, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultFuzzyAlgorithm
	}
	algo, ok := fuzzyAlgorithms[name]
	if !ok {
		return nil, fmt.Errorf("unknown fuzzy algorithm %q", name)
	}
	return &FuzzySimilarity{name: name, algorithm: algo}, nil
}

// Name returns the configured algorithm name.
func (f *FuzzySimilarity) Name() string {
	return f.name
}

// Similarity implements SimilarityFunc.
func (f *FuzzySimilarity) Similarity(ctx context.Context, a, b []string) ([][]float64, error) {
	na := normalizeAll(a)
	nb := normalizeAll(b)
	out := make([][]float64, len(na))
	for i, ta := range na {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = make([]float64, len(nb))
		for j, tb := range nb {
			score, err := f.pair(ta, tb)
			if err != nil {
				return nil, fmt.Errorf("fuzzy %s [%d][%d]: %w", f.name, i, j, err)
			}
			out[i][j] = score
		}
	}
	return out, nil
}

func (f *FuzzySimilarity) pair(a, b string) (float64, error) {
	if a == b {
		return 1, nil
	}
	if a == "" || b == "" {
		return 0, nil
	}
	score, err := edlib.StringsSimilarity(a, b, f.algorithm)
	if err != nil {
		return 0, err
	}
	return float64(score), nil
}

func normalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = strings.ToLower(NormalizeText(t))
	}
	return out
}
