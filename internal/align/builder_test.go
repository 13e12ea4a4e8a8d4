// ABOUTME: Tests for similarity matrix construction over fake providers.
// ABOUTME: Covers empty inputs, provider failures and cache reuse.
package align

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/beatalign/internal/embeddings"
)

// fakeProvider embeds texts from a fixed table and records what it was asked for.
type fakeProvider struct {
	embeddings.CosineComparer

	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
	seen    []string
	err     error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{vectors: map[string][]float32{
		"the hero leaves home":   {1, 0, 0},
		"the hero departs":       {0.9, 0.1, 0},
		"a storm at sea":         {0, 1, 0},
		"the ship is wrecked":    {0, 0.95, 0.05},
		"the hero returns":       {0, 0, 1},
		"coming home at last":    {0.1, 0, 0.9},
		"an unrelated interlude": {-1, 0.2, -0.5},
	}}
}

func (f *fakeProvider) Embed(_ context.Context, ids, texts []string) (map[string][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.seen = append(f.seen, ids...)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string][]float32, len(ids))
	for i, id := range ids {
		if vec, ok := f.vectors[texts[i]]; ok {
			out[id] = vec
		}
	}
	return out, nil
}

func (f *fakeProvider) Dimension() int { return 3 }

func story(pairs ...string) Sequence {
	out := make(Sequence, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Element{ID: pairs[i], Text: pairs[i+1]})
	}
	return out
}

func TestBuildMatrix(t *testing.T) {
	p := newFakeProvider()
	src := story("s1", "the hero leaves home", "s2", "a storm at sea")
	tgt := story("t1", "the hero departs", "t2", "the ship is wrecked", "t3", "coming home at last")

	m, err := NewBuilder(p).Build(context.Background(), src, tgt)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 3, m.Cols)
	assert.Greater(t, m.At(0, 0), m.At(0, 1))
	assert.Greater(t, m.At(1, 1), m.At(1, 0))
	assert.Equal(t, 2, p.calls)
}

func TestBuildEmptyInputsSkipProvider(t *testing.T) {
	p := newFakeProvider()
	b := NewBuilder(p)

	m, err := b.Build(context.Background(), nil, story("t1", "the hero departs"))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Rows)
	assert.Equal(t, 1, m.Cols)

	m, err = b.Build(context.Background(), story("s1", "the hero departs"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Rows)
	assert.Equal(t, 0, m.Cols)
	require.NoError(t, m.Validate())

	assert.Zero(t, p.calls)
}

func TestBuildProviderFailure(t *testing.T) {
	p := newFakeProvider()
	p.err = errors.New("connection refused")

	_, err := NewBuilder(p).Build(context.Background(), story("s1", "the hero leaves home"), story("t1", "the hero departs"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderFailure))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBuildMissingVector(t *testing.T) {
	_, err := NewBuilder(newFakeProvider()).Build(context.Background(), story("s1", "never seen before"), story("t1", "the hero departs"))
	assert.True(t, errors.Is(err, ErrProviderFailure))
}

func TestBuildNoProvider(t *testing.T) {
	_, err := NewBuilder(nil).Build(context.Background(), story("s1", "x"), story("t1", "y"))
	assert.True(t, errors.Is(err, ErrProviderFailure))
}

func TestBuildRejectsDuplicateIDs(t *testing.T) {
	p := newFakeProvider()
	_, err := NewBuilder(p).Build(context.Background(), story("s1", "a storm at sea", "s1", "the hero returns"), story("t1", "the hero departs"))
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Zero(t, p.calls)
}

func TestBuildUsesCache(t *testing.T) {
	p := newFakeProvider()
	cache := embeddings.NewMemoryCache(nil)
	b := NewBuilder(p, WithCache(cache))
	src := story("s1", "the hero leaves home", "s2", "a storm at sea")
	tgt := story("t1", "the hero departs")

	first, err := b.Build(context.Background(), src, tgt)
	require.NoError(t, err)
	assert.Equal(t, 3, cache.Len())
	assert.Equal(t, 2, p.calls)

	second, err := b.Build(context.Background(), src, tgt)
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls, "fully cached build must not call the provider")
	assert.Equal(t, first, second)

	// Edited text misses the cache even though the id is unchanged.
	edited := story("s1", "the hero returns", "s2", "a storm at sea")
	_, err = b.Build(context.Background(), edited, tgt)
	require.NoError(t, err)
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, []string{"s1", "s2", "t1", "s1"}, p.seen)
}

func TestBuildSimilarityFunc(t *testing.T) {
	fn := func(_ context.Context, a, b []string) ([][]float64, error) {
		out := make([][]float64, len(a))
		for i := range a {
			out[i] = make([]float64, len(b))
			for j := range b {
				if a[i] == b[j] {
					out[i][j] = 1
				}
			}
		}
		return out, nil
	}
	m, err := NewSimilarityBuilder(fn).Build(context.Background(), story("s1", "x", "s2", "y"), story("t1", "y"))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0}, {1}}, m.Values)
}

func TestBuildMalformedSimilarity(t *testing.T) {
	fn := func(context.Context, []string, []string) ([][]float64, error) {
		return [][]float64{{1, 2}}, nil
	}
	_, err := NewSimilarityBuilder(fn).Build(context.Background(), story("s1", "x"), story("t1", "y"))
	assert.True(t, errors.Is(err, ErrProviderFailure))
	assert.False(t, errors.Is(err, ErrInvalidInput))
}
