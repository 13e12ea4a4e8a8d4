// ABOUTME: Global top-k matching of every source element against all targets.
// ABOUTME: Produces ranked matches plus whole-matrix similarity statistics.
package align

import (
	"cmp"
	"fmt"
	"slices"
)

const snippetLength = 100

// SimilarityMatch is one retained source→target pairing.
type SimilarityMatch struct {
	SourceID      string  `json:"source_id"`
	TargetID      string  `json:"target_id"`
	SourceSnippet string  `json:"source_text"`
	TargetSnippet string  `json:"target_text"`
	Score         float64 `json:"score"`
	Rank          int     `json:"rank"`
}

// AlignmentResult is the output of global matching.
type AlignmentResult struct {
	SourceIDs         []string          `json:"source_ids"`
	TargetIDs         []string          `json:"target_ids"`
	SimilarityMatrix  Matrix            `json:"similarity_matrix"`
	Matches           []SimilarityMatch `json:"matches"`
	MeanSimilarity    float64           `json:"mean_similarity"`
	MaxSimilarity     float64           `json:"max_similarity"`
	AlignmentCoverage float64           `json:"alignment_coverage"`
}

// MatchOptions bounds how many matches each source row keeps.
type MatchOptions struct {
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"threshold"`
}

// DefaultMatchOptions returns the default top-k settings.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{TopK: DefaultTopK, Threshold: DefaultThreshold}
}

// Validate checks top_k and threshold.
func (o MatchOptions) Validate() error {
	if err := checkTopK(o.TopK); err != nil {
		return err
	}
	return checkThreshold(o.Threshold)
}

// TopKMatcher ranks targets for each source row.
type TopKMatcher struct{}

// Match keeps, for every source row, up to TopK targets scoring at least
// Threshold, ranked by descending score with ties broken by target position.
// Mean and max similarity cover the whole matrix, not just retained matches.
func (TopKMatcher) Match(m Matrix, source, target Sequence, opts MatchOptions) (AlignmentResult, error) {
	if err := opts.Validate(); err != nil {
		return AlignmentResult{}, err
	}
	if err := m.Validate(); err != nil {
		return AlignmentResult{}, err
	}
	if m.Rows != len(source) || m.Cols != len(target) {
		return AlignmentResult{}, fmt.Errorf("%w: matrix is %dx%d but sequences are %dx%d",
			ErrInvalidInput, m.Rows, m.Cols, len(source), len(target))
	}

	res := AlignmentResult{
		SourceIDs:        source.IDs(),
		TargetIDs:        target.IDs(),
		SimilarityMatrix: m,
		Matches:          []SimilarityMatch{},
	}
	if m.IsEmpty() {
		return res, nil
	}

	order := make([]int, m.Cols)
	for i := 0; i < m.Rows; i++ {
		row := m.Row(i)
		for j := range order {
			order[j] = j
		}
		slices.SortFunc(order, func(a, b int) int {
			if c := cmp.Compare(row[b], row[a]); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})

		rank := 0
		for _, j := range order {
			if rank >= opts.TopK || row[j] < opts.Threshold {
				break
			}
			rank++
			res.Matches = append(res.Matches, SimilarityMatch{
				SourceID:      source[i].ID,
				TargetID:      target[j].ID,
				SourceSnippet: snippet(source[i].Text, snippetLength),
				TargetSnippet: snippet(target[j].Text, snippetLength),
				Score:         row[j],
				Rank:          rank,
			})
		}
	}

	res.MeanSimilarity, res.MaxSimilarity = m.Stats()
	res.AlignmentCoverage = coverage(res.Matches, len(target))
	return res, nil
}

// FindBestMatch scores one source element against the targets and returns its
// best match with a non-negative score, if any.
func (t TopKMatcher) FindBestMatch(scores []float64, source Element, target Sequence) (SimilarityMatch, bool, error) {
	m, err := NewMatrix([][]float64{scores}, len(target))
	if err != nil {
		return SimilarityMatch{}, false, err
	}
	res, err := t.Match(m, Sequence{source}, target, MatchOptions{TopK: 1, Threshold: 0})
	if err != nil {
		return SimilarityMatch{}, false, err
	}
	if len(res.Matches) == 0 {
		return SimilarityMatch{}, false, nil
	}
	return res.Matches[0], true, nil
}

// SelfAnalysis matches a sequence against itself and drops matches of an
// element with itself, surfacing recurring motifs. Ranks are kept as assigned
// before the filter; coverage is recomputed over the remaining matches.
func (t TopKMatcher) SelfAnalysis(m Matrix, seq Sequence, opts MatchOptions) (AlignmentResult, error) {
	res, err := t.Match(m, seq, seq, opts)
	if err != nil {
		return AlignmentResult{}, err
	}
	kept := res.Matches[:0]
	for _, match := range res.Matches {
		if match.SourceID == match.TargetID {
			continue
		}
		kept = append(kept, match)
	}
	res.Matches = kept
	res.AlignmentCoverage = coverage(res.Matches, len(seq))
	return res, nil
}

func coverage(matches []SimilarityMatch, targets int) float64 {
	if targets == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		seen[m.TargetID] = struct{}{}
	}
	return float64(len(seen)) / float64(targets)
}
