// ABOUTME: Greedy extraction of several non-overlapping local alignments.
// ABOUTME: Masks used rows and columns with a sentinel between iterations.
package align

import "fmt"

// MaskSentinel is the score read from every cell of a used row or column.
const MaskSentinel = -1.0

// MultiAligner repeatedly runs a LocalAligner, removing the rows and columns of
// each accepted alignment before the next pass. Results depend on tie order
// because masking is applied greedily; that is expected, not a defect.
type MultiAligner struct {
	Local *LocalAligner

	// MinScore stops extraction once the best remaining alignment scores below
	// it. It is an absolute score, so it needs retuning whenever MatchScore or
	// GapPenalty change.
	MinScore float64
}

// NewMultiAligner returns a multi-aligner with the default stop score.
func NewMultiAligner(local *LocalAligner) *MultiAligner {
	return &MultiAligner{Local: local, MinScore: DefaultMinAlignmentScore}
}

// MultiAlign returns at most topK alignments that share no source or target index.
func (a *MultiAligner) MultiAlign(m Matrix, topK int) ([]SequenceAlignment, error) {
	if err := checkTopK(topK); err != nil {
		return nil, err
	}
	if !isFinite(a.MinScore) {
		return nil, fmt.Errorf("%w: min alignment score must be finite", ErrInvalidInput)
	}
	if err := a.Local.Scoring.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	view := newMaskedGrid(m)
	out := []SequenceAlignment{}
	for len(out) < topK {
		aln := a.Local.align(view)
		if aln.IsEmpty() || aln.Score < a.MinScore {
			break
		}
		out = append(out, aln)
		for _, p := range aln.Path {
			if p.IsGap {
				continue
			}
			view.usedRows[p.SourceIndex] = true
			view.usedCols[p.TargetIndex] = true
		}
	}
	return out, nil
}

// maskedGrid reads through to the matrix except on used rows and columns.
type maskedGrid struct {
	m        Matrix
	usedRows []bool
	usedCols []bool
}

func newMaskedGrid(m Matrix) *maskedGrid {
	return &maskedGrid{
		m:        m,
		usedRows: make([]bool, m.Rows),
		usedCols: make([]bool, m.Cols),
	}
}

func (g *maskedGrid) dims() (int, int) { return g.m.Rows, g.m.Cols }

func (g *maskedGrid) at(i, j int) float64 {
	if g.masked(i, j) {
		return MaskSentinel
	}
	return g.m.Values[i][j]
}

func (g *maskedGrid) masked(i, j int) bool {
	return g.usedRows[i] || g.usedCols[j]
}
