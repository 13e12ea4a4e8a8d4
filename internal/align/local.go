// ABOUTME: Smith-Waterman style local alignment over a similarity matrix.
// ABOUTME: Fills the DP table in one pass, then traces back from the best cell.
package align

import (
	"fmt"
	"math"
)

// Direction records which neighbour produced a DP cell.
type Direction uint8

const (
	DirNone Direction = iota
	DirDiagonal
	DirUp
	DirLeft
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case DirNone:
		return "none"
	case DirDiagonal:
		return "diagonal"
	case DirUp:
		return "up"
	case DirLeft:
		return "left"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// AlignmentPath is one traceback step. Gaps carry -1 for the skipped side.
type AlignmentPath struct {
	SourceIndex int     `json:"source_index"`
	TargetIndex int     `json:"target_index"`
	Score       float64 `json:"score"`
	IsGap       bool    `json:"is_gap"`
}

// SequenceAlignment is the best local alignment found in a matrix.
type SequenceAlignment struct {
	Path          []AlignmentPath `json:"path"`
	Score         float64         `json:"score"`
	SourceAligned []int           `json:"source_aligned"`
	TargetAligned []int           `json:"target_aligned"`
	DPMatrix      [][]float64     `json:"dp_matrix,omitempty"`
	Directions    [][]Direction   `json:"-"`
	GapCount      int             `json:"gap_count"`
	Identity      float64         `json:"identity"`
}

// IsEmpty reports whether no alignment was found.
func (a SequenceAlignment) IsEmpty() bool {
	return len(a.Path) == 0
}

// LocalAligner finds the single best-scoring local alignment.
type LocalAligner struct {
	Scoring Scoring
}

// NewLocalAligner returns an aligner using the given scoring policy.
func NewLocalAligner(scoring Scoring) *LocalAligner {
	return &LocalAligner{Scoring: scoring}
}

// Align validates the matrix and scoring, then runs the alignment.
func (a *LocalAligner) Align(m Matrix) (SequenceAlignment, error) {
	if err := a.Scoring.Validate(); err != nil {
		return SequenceAlignment{}, err
	}
	if err := m.Validate(); err != nil {
		return SequenceAlignment{}, err
	}
	return a.align(m), nil
}

func (a *LocalAligner) align(g grid) SequenceAlignment {
	n, m := g.dims()
	if n == 0 || m == 0 {
		return emptyAlignment()
	}
	sc := a.Scoring

	score := make([][]float64, n+1)
	dirs := make([][]Direction, n+1)
	for i := range score {
		score[i] = make([]float64, m+1)
		dirs[i] = make([]Direction, m+1)
	}

	best, bestI, bestJ := 0.0, 0, 0
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			diag := math.Inf(-1)
			if !g.masked(i-1, j-1) {
				diag = score[i-1][j-1] + sc.CellScore(g.at(i-1, j-1))
			}
			up := score[i-1][j] + sc.GapPenalty
			left := score[i][j-1] + sc.GapPenalty

			// Ties resolve diagonal, then up, then left.
			cell := max(0, diag, up, left)
			score[i][j] = cell
			switch cell {
			case diag:
				dirs[i][j] = DirDiagonal
			case up:
				dirs[i][j] = DirUp
			case left:
				dirs[i][j] = DirLeft
			default:
				dirs[i][j] = DirNone
			}

			if cell > best {
				best, bestI, bestJ = cell, i, j
			}
		}
	}

	out := traceback(g, score, dirs, bestI, bestJ, sc.Threshold)
	out.DPMatrix = score
	out.Directions = dirs
	return out
}

// traceback walks back from (i, j) until a grid edge or a zero cell.
func traceback(g grid, score [][]float64, dirs [][]Direction, i, j int, threshold float64) SequenceAlignment {
	out := SequenceAlignment{
		Path:          []AlignmentPath{},
		SourceAligned: []int{},
		TargetAligned: []int{},
		Score:         score[i][j],
	}

walk:
	for i > 0 && j > 0 && score[i][j] > 0 {
		switch dirs[i][j] {
		case DirDiagonal:
			out.Path = append(out.Path, AlignmentPath{SourceIndex: i - 1, TargetIndex: j - 1, Score: g.at(i-1, j-1)})
			out.SourceAligned = append(out.SourceAligned, i-1)
			out.TargetAligned = append(out.TargetAligned, j-1)
			i--
			j--
		case DirUp:
			out.Path = append(out.Path, AlignmentPath{SourceIndex: i - 1, TargetIndex: -1, IsGap: true})
			out.GapCount++
			i--
		case DirLeft:
			out.Path = append(out.Path, AlignmentPath{SourceIndex: -1, TargetIndex: j - 1, IsGap: true})
			out.GapCount++
			j--
		case DirNone:
			break walk
		}
	}

	reverse(out.Path)
	reverse(out.SourceAligned)
	reverse(out.TargetAligned)
	out.Identity = identity(out.Path, threshold)
	return out
}

func identity(path []AlignmentPath, threshold float64) float64 {
	if len(path) == 0 {
		return 0
	}
	hits := 0
	for _, p := range path {
		if !p.IsGap && p.Score >= threshold {
			hits++
		}
	}
	return float64(hits) / float64(len(path))
}

func emptyAlignment() SequenceAlignment {
	return SequenceAlignment{
		Path:          []AlignmentPath{},
		SourceAligned: []int{},
		TargetAligned: []int{},
		DPMatrix:      [][]float64{},
	}
}

func reverse[T any](s []T) {
	for l, r := 0, len(s)-1; l < r; l, r = l+1, r-1 {
		s[l], s[r] = s[r], s[l]
	}
}
