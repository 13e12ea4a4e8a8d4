// ABOUTME: Tests for matrix and sequence construction and validation.
// ABOUTME: Covers shape checks, statistics and id rules.
package align

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatrix(t *testing.T) {
	m, err := NewMatrix([][]float64{{1, 2}, {3, 4}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 2, m.Cols)
	assert.Equal(t, 4, m.Cells())
	assert.Equal(t, 3.0, m.At(1, 0))

	m, err = NewMatrix(nil, 5)
	require.NoError(t, err)
	assert.True(t, m.IsEmpty())
	assert.Equal(t, 5, m.Cols)

	_, err = NewMatrix([][]float64{{1, 2}, {3}}, 0)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = NewMatrix([][]float64{{math.Inf(1)}}, 0)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestMatrixStats(t *testing.T) {
	mean, maxScore := MustMatrix([][]float64{{-0.5, 0.5}, {1, 0}}).Stats()
	assert.InDelta(t, 0.25, mean, 1e-9)
	assert.InDelta(t, 1.0, maxScore, 1e-9)

	mean, maxScore = EmptyMatrix(3, 0).Stats()
	assert.Zero(t, mean)
	assert.Zero(t, maxScore)
}

func TestMatrixClone(t *testing.T) {
	m := MustMatrix([][]float64{{1, 2}})
	c := m.Clone()
	c.Values[0][0] = 9
	assert.Equal(t, 1.0, m.At(0, 0))
}

func TestNewSequence(t *testing.T) {
	s, err := NewSequence([]string{"a", "b"}, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.IDs())
	assert.Equal(t, []string{"alpha", "beta"}, s.Texts())

	_, err = NewSequence([]string{"a"}, []string{"alpha", "beta"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = NewSequence([]string{"a", "a"}, []string{"x", "y"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = NewSequence([]string{" "}, []string{"x"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "abc", snippet("  abc  ", 5))
	assert.Equal(t, "ab...", snippet("abcdef", 2))
}
