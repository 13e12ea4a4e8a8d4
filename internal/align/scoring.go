// ABOUTME: Scoring policy for the local aligner and its parameter checks.
// ABOUTME: Blends a continuous similarity term into both match and mismatch scores.
package align

import (
	"fmt"
	"math"
)

// Default parameters, matching the batch driver's historical defaults.
const (
	DefaultThreshold         = 0.5
	DefaultTopK              = 3
	DefaultMatchScore        = 2.0
	DefaultMismatchPenalty   = -1.0
	DefaultGapPenalty        = -1.0
	DefaultSimilarityWeight  = 1.0
	DefaultMinAlignmentScore = 1.0
)

// Scoring configures the local alignment dynamic program.
type Scoring struct {
	Threshold        float64 `json:"threshold"`
	MatchScore       float64 `json:"match_score"`
	MismatchPenalty  float64 `json:"mismatch_penalty"`
	GapPenalty       float64 `json:"gap_penalty"`
	SimilarityWeight float64 `json:"similarity_weight"`
}

// DefaultScoring returns the default scoring policy.
func DefaultScoring() Scoring {
	return Scoring{
		Threshold:        DefaultThreshold,
		MatchScore:       DefaultMatchScore,
		MismatchPenalty:  DefaultMismatchPenalty,
		GapPenalty:       DefaultGapPenalty,
		SimilarityWeight: DefaultSimilarityWeight,
	}
}

// CellScore is the diagonal step score for a raw similarity. The weighted
// similarity term is never clamped.
func (s Scoring) CellScore(sim float64) float64 {
	if sim >= s.Threshold {
		return s.MatchScore + sim*s.SimilarityWeight
	}
	return s.MismatchPenalty + sim*s.SimilarityWeight
}

// Validate rejects non-finite parameters and thresholds outside [-1, 1].
func (s Scoring) Validate() error {
	if err := checkThreshold(s.Threshold); err != nil {
		return err
	}
	named := []struct {
		name  string
		value float64
	}{
		{"match_score", s.MatchScore},
		{"mismatch_penalty", s.MismatchPenalty},
		{"gap_penalty", s.GapPenalty},
		{"similarity_weight", s.SimilarityWeight},
	}
	for _, p := range named {
		if !isFinite(p.value) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidInput, p.name)
		}
	}
	return nil
}

func checkThreshold(t float64) error {
	if !isFinite(t) || t < -1 || t > 1 {
		return fmt.Errorf("%w: threshold %v outside [-1, 1]", ErrInvalidInput, t)
	}
	return nil
}

func checkTopK(k int) error {
	if k < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", ErrInvalidInput, k)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
