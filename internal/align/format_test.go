// ABOUTME: Tests for mapping alignments back to element ids.
// ABOUTME: Checks gap rendering, coverage fractions and spans.
package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAlignmentWithGap(t *testing.T) {
	m := MustMatrix([][]float64{
		{0.9, 0.0},
		{0.0, 0.0},
		{0.0, 0.9},
	})
	aln, err := NewLocalAligner(DefaultScoring()).Align(m)
	require.NoError(t, err)

	out := FormatAlignment(aln, seq("s0", "s1", "s2"), seq("t0", "t1"))
	require.Len(t, out.Pairs, 3)
	assert.Equal(t, AlignedPair{SourceID: "s0", TargetID: "t0", Score: 0.9}, out.Pairs[0])
	assert.Equal(t, AlignedPair{SourceID: "s1", IsGap: true}, out.Pairs[1])
	assert.Equal(t, AlignedPair{SourceID: "s2", TargetID: "t1", Score: 0.9}, out.Pairs[2])
	assert.InDelta(t, 2.0/3.0, out.SourceCoverage, 1e-9)
	assert.InDelta(t, 1.0, out.TargetCoverage, 1e-9)
	assert.Equal(t, Span{Start: 0, End: 2}, out.SourceSpan)
	assert.Equal(t, Span{Start: 0, End: 1}, out.TargetSpan)
	assert.Equal(t, 1, out.GapCount)
}

func TestFormatEmptyAlignment(t *testing.T) {
	out := FormatAlignment(emptyAlignment(), nil, nil)
	assert.Empty(t, out.Pairs)
	assert.Equal(t, Span{Start: -1, End: -1}, out.SourceSpan)
	assert.Zero(t, out.SourceCoverage)
	assert.Zero(t, out.TargetCoverage)
}
