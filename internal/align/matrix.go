// ABOUTME: Dense similarity matrix shared by the matcher and the aligners.
// ABOUTME: Rows are source positions, columns are target positions.
package align

import (
	"fmt"
	"math"
)

// Matrix is an N×M grid of similarity scores. Scores are usually cosine
// similarities in [-1, 1] but no fixed range is assumed.
type Matrix struct {
	Rows   int         `json:"rows"`
	Cols   int         `json:"cols"`
	Values [][]float64 `json:"values"`
}

// grid is the read-only view the aligners walk. The multi-aligner wraps a
// Matrix in a masked grid instead of copying it. A masked cell can never be a
// diagonal step, so a used index is never aligned twice.
type grid interface {
	dims() (rows, cols int)
	at(i, j int) float64
	masked(i, j int) bool
}

// EmptyMatrix returns a matrix with the given dimensions where at least one is
// zero. It is the well-formed result for an empty source or target list.
func EmptyMatrix(rows, cols int) Matrix {
	values := make([][]float64, rows)
	for i := range values {
		values[i] = []float64{}
	}
	return Matrix{Rows: rows, Cols: cols, Values: values}
}

// NewMatrix wraps caller-supplied scores after checking they are rectangular
// and finite. The cols argument keeps the column count when values has no rows.
func NewMatrix(values [][]float64, cols int) (Matrix, error) {
	if len(values) > 0 {
		cols = len(values[0])
	}
	m := Matrix{Rows: len(values), Cols: cols, Values: values}
	if err := m.Validate(); err != nil {
		return Matrix{}, err
	}
	return m, nil
}

// MustMatrix is NewMatrix for literals in tests and examples; it panics on bad input.
func MustMatrix(values [][]float64) Matrix {
	m, err := NewMatrix(values, 0)
	if err != nil {
		panic(err)
	}
	return m
}

// Validate checks the shape and that every score is finite.
func (m Matrix) Validate() error {
	if err := m.check(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

func (m Matrix) check() error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("negative matrix dimensions %dx%d", m.Rows, m.Cols)
	}
	if len(m.Values) != m.Rows {
		return fmt.Errorf("matrix has %d rows, expected %d", len(m.Values), m.Rows)
	}
	for i, row := range m.Values {
		if len(row) != m.Cols {
			return fmt.Errorf("matrix row %d has %d columns, expected %d", i, len(row), m.Cols)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("non-finite similarity at [%d][%d]", i, j)
			}
		}
	}
	return nil
}

// IsEmpty reports whether the matrix has no cells.
func (m Matrix) IsEmpty() bool {
	return m.Rows == 0 || m.Cols == 0
}

// Cells returns the number of scores in the matrix.
func (m Matrix) Cells() int {
	return m.Rows * m.Cols
}

// At returns the score for source i and target j.
func (m Matrix) At(i, j int) float64 {
	return m.Values[i][j]
}

// Row returns the scores of source i.
func (m Matrix) Row(i int) []float64 {
	return m.Values[i]
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	values := make([][]float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = append([]float64(nil), row...)
	}
	return Matrix{Rows: m.Rows, Cols: m.Cols, Values: values}
}

// Stats returns the mean and maximum over every cell, or zeros for an empty matrix.
func (m Matrix) Stats() (mean, maxScore float64) {
	if m.IsEmpty() {
		return 0, 0
	}
	maxScore = math.Inf(-1)
	var sum float64
	for _, row := range m.Values {
		for _, v := range row {
			sum += v
			if v > maxScore {
				maxScore = v
			}
		}
	}
	return sum / float64(m.Cells()), maxScore
}

func (m Matrix) dims() (int, int) { return m.Rows, m.Cols }

func (m Matrix) at(i, j int) float64 { return m.Values[i][j] }

func (m Matrix) masked(int, int) bool { return false }
