// ABOUTME: Tests for the single local aligner.
// ABOUTME: Covers hand-computed paths, gap handling, empty results and DP invariants.
package align

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellScore(t *testing.T) {
	sc := DefaultScoring()
	assert.InDelta(t, 2.9, sc.CellScore(0.9), 1e-9)
	assert.InDelta(t, 2.5, sc.CellScore(0.5), 1e-9, "threshold itself counts as a match")
	assert.InDelta(t, -0.9, sc.CellScore(0.1), 1e-9)
	assert.InDelta(t, -1.5, sc.CellScore(-0.5), 1e-9, "negative similarity is not clamped")
}

func TestAlignTwoByTwoDiagonal(t *testing.T) {
	m := MustMatrix([][]float64{
		{0.9, 0.1},
		{0.2, 0.95},
	})
	aln, err := NewLocalAligner(DefaultScoring()).Align(m)
	require.NoError(t, err)

	assert.InDelta(t, 5.85, aln.Score, 1e-9)
	require.Len(t, aln.Path, 2)
	assert.Equal(t, AlignmentPath{SourceIndex: 0, TargetIndex: 0, Score: 0.9}, aln.Path[0])
	assert.Equal(t, AlignmentPath{SourceIndex: 1, TargetIndex: 1, Score: 0.95}, aln.Path[1])
	assert.Equal(t, []int{0, 1}, aln.SourceAligned)
	assert.Equal(t, []int{0, 1}, aln.TargetAligned)
	assert.Zero(t, aln.GapCount)
	assert.InDelta(t, 1.0, aln.Identity, 1e-9)
}

func TestAlignIdentityMatrix(t *testing.T) {
	m := MustMatrix([][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	})
	aln, err := NewLocalAligner(DefaultScoring()).Align(m)
	require.NoError(t, err)

	assert.InDelta(t, 9.0, aln.Score, 1e-9)
	assert.Equal(t, []int{0, 1, 2}, aln.SourceAligned)
	assert.Equal(t, []int{0, 1, 2}, aln.TargetAligned)
	assert.Zero(t, aln.GapCount)
}

func TestAlignWithGap(t *testing.T) {
	// Source beat 1 has no counterpart; the best path skips it.
	m := MustMatrix([][]float64{
		{0.9, 0.0},
		{0.0, 0.0},
		{0.0, 0.9},
	})
	aln, err := NewLocalAligner(DefaultScoring()).Align(m)
	require.NoError(t, err)

	assert.InDelta(t, 4.8, aln.Score, 1e-9)
	require.Len(t, aln.Path, 3)
	assert.Equal(t, AlignmentPath{SourceIndex: 1, TargetIndex: -1, IsGap: true}, aln.Path[1])
	assert.Equal(t, 1, aln.GapCount)
	assert.Equal(t, []int{0, 2}, aln.SourceAligned)
	assert.Equal(t, []int{0, 1}, aln.TargetAligned)
	assert.InDelta(t, 2.0/3.0, aln.Identity, 1e-9)
}

func TestAlignBelowThresholdIsEmpty(t *testing.T) {
	m := MustMatrix([][]float64{
		{0.1, 0.1},
		{0.1, 0.1},
	})
	aln, err := NewLocalAligner(DefaultScoring()).Align(m)
	require.NoError(t, err)

	assert.True(t, aln.IsEmpty())
	assert.Zero(t, aln.Score)
	assert.Empty(t, aln.SourceAligned)
	assert.Empty(t, aln.TargetAligned)
	assert.Zero(t, aln.Identity)
}

func TestAlignEmptyMatrix(t *testing.T) {
	for _, m := range []Matrix{EmptyMatrix(0, 0), EmptyMatrix(0, 4), EmptyMatrix(3, 0)} {
		aln, err := NewLocalAligner(DefaultScoring()).Align(m)
		require.NoError(t, err)
		assert.True(t, aln.IsEmpty())
		assert.Zero(t, aln.Score)
	}
}

func TestAlignDPInvariants(t *testing.T) {
	m := MustMatrix([][]float64{
		{0.3, 0.8, -0.2, 0.6},
		{0.9, 0.1, 0.7, -0.9},
		{0.2, 0.55, 0.95, 0.4},
		{-0.4, 0.6, 0.1, 0.85},
		{0.75, 0.0, 0.5, 0.3},
	})
	aln, err := NewLocalAligner(DefaultScoring()).Align(m)
	require.NoError(t, err)

	require.Len(t, aln.DPMatrix, m.Rows+1)
	var best float64
	for i, row := range aln.DPMatrix {
		require.Len(t, row, m.Cols+1)
		for j, v := range row {
			assert.GreaterOrEqual(t, v, 0.0, "cell [%d][%d]", i, j)
			if i == 0 || j == 0 {
				assert.Zero(t, v, "boundary cell [%d][%d]", i, j)
			}
			best = math.Max(best, v)
		}
	}
	assert.InDelta(t, best, aln.Score, 1e-9)

	// Aligned indices strictly increase along the path.
	for k := 1; k < len(aln.SourceAligned); k++ {
		assert.Greater(t, aln.SourceAligned[k], aln.SourceAligned[k-1])
		assert.Greater(t, aln.TargetAligned[k], aln.TargetAligned[k-1])
	}
	assert.Len(t, aln.SourceAligned, len(aln.Path)-aln.GapCount)
	assert.GreaterOrEqual(t, aln.Identity, 0.0)
	assert.LessOrEqual(t, aln.Identity, 1.0)
}

func tieScoring() Scoring {
	return Scoring{
		Threshold:        0.5,
		MatchScore:       2,
		MismatchPenalty:  -1,
		GapPenalty:       -0.5,
		SimilarityWeight: 1,
	}
}

func TestAlignTiePrefersDiagonalOverUp(t *testing.T) {
	// DP cell [2][1] scores 2.5 both from the diagonal (0 + 2.5) and from
	// above (3 - 0.5). The diagonal wins, so the path skips source beat 0.
	m := MustMatrix([][]float64{
		{1.0, 0.0},
		{0.5, 0.0},
		{0.0, 1.0},
	})
	aln, err := NewLocalAligner(tieScoring()).Align(m)
	require.NoError(t, err)

	assert.Equal(t, DirDiagonal, aln.Directions[2][1])
	assert.Equal(t, DirDiagonal, aln.Directions[2][2], "three-way tie")
	assert.Equal(t, DirUp, aln.Directions[3][1])
	assert.InDelta(t, 2.5, aln.DPMatrix[2][1], 1e-12)

	assert.InDelta(t, 5.5, aln.Score, 1e-12)
	assert.Equal(t, []AlignmentPath{
		{SourceIndex: 1, TargetIndex: 0, Score: 0.5},
		{SourceIndex: 2, TargetIndex: 1, Score: 1.0},
	}, aln.Path)
	assert.Zero(t, aln.GapCount)
	assert.Equal(t, []int{1, 2}, aln.SourceAligned)
	assert.Equal(t, []int{0, 1}, aln.TargetAligned)
}

func TestAlignTiePrefersUpOverLeft(t *testing.T) {
	// DP cell [2][2] scores 2 from above and from the left, with the
	// diagonal at 1.5. Up wins, so the source gap comes last in the path.
	m := MustMatrix([][]float64{
		{1, 0, 0},
		{0, -0.5, 0},
		{0, 0, 1},
	})
	aln, err := NewLocalAligner(tieScoring()).Align(m)
	require.NoError(t, err)

	assert.Equal(t, DirUp, aln.Directions[2][2])
	assert.Equal(t, DirLeft, aln.Directions[1][2])
	assert.Equal(t, DirDiagonal, aln.Directions[3][3])
	assert.InDelta(t, 2.0, aln.DPMatrix[2][2], 1e-12)

	assert.InDelta(t, 5.0, aln.Score, 1e-12)
	assert.Equal(t, []AlignmentPath{
		{SourceIndex: 0, TargetIndex: 0, Score: 1},
		{SourceIndex: -1, TargetIndex: 1, IsGap: true},
		{SourceIndex: 1, TargetIndex: -1, IsGap: true},
		{SourceIndex: 2, TargetIndex: 2, Score: 1},
	}, aln.Path)
	assert.Equal(t, 2, aln.GapCount)
	assert.Equal(t, []int{0, 2}, aln.SourceAligned)
	assert.Equal(t, []int{0, 2}, aln.TargetAligned)
	assert.InDelta(t, 0.5, aln.Identity, 1e-12)
}

func TestAlignRejectsBadInput(t *testing.T) {
	_, err := NewLocalAligner(DefaultScoring()).Align(Matrix{Rows: 1, Cols: 1, Values: [][]float64{{math.NaN()}}})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	sc := DefaultScoring()
	sc.Threshold = 1.5
	_, err = NewLocalAligner(sc).Align(MustMatrix([][]float64{{0.5}}))
	assert.True(t, errors.Is(err, ErrInvalidInput))

	sc = DefaultScoring()
	sc.GapPenalty = math.Inf(-1)
	_, err = NewLocalAligner(sc).Align(MustMatrix([][]float64{{0.5}}))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "diagonal", DirDiagonal.String())
	assert.Equal(t, "none", DirNone.String())
	assert.Equal(t, "Direction(9)", Direction(9).String())
}
