// ABOUTME: Maps index-based alignments back to caller ids for output.
// ABOUTME: Adds coverage and span metrics alongside score, gaps and identity.
package align

// AlignedPair is one step of a formatted alignment. Gaps leave one id empty.
type AlignedPair struct {
	SourceID string  `json:"source_id,omitempty"`
	TargetID string  `json:"target_id,omitempty"`
	Score    float64 `json:"score"`
	IsGap    bool    `json:"is_gap"`
}

// Span is an inclusive index range; both ends are -1 when nothing aligned.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FormattedAlignment is a SequenceAlignment keyed by ids.
type FormattedAlignment struct {
	Pairs          []AlignedPair `json:"pairs"`
	Score          float64       `json:"score"`
	GapCount       int           `json:"gap_count"`
	Identity       float64       `json:"identity"`
	SourceCoverage float64       `json:"source_coverage"`
	TargetCoverage float64       `json:"target_coverage"`
	SourceSpan     Span          `json:"source_span"`
	TargetSpan     Span          `json:"target_span"`
}

// FormatAlignment resolves alignment indices against the sequences the matrix
// was built from.
func FormatAlignment(aln SequenceAlignment, source, target Sequence) FormattedAlignment {
	out := FormattedAlignment{
		Pairs:      make([]AlignedPair, 0, len(aln.Path)),
		Score:      aln.Score,
		GapCount:   aln.GapCount,
		Identity:   aln.Identity,
		SourceSpan: span(aln.SourceAligned),
		TargetSpan: span(aln.TargetAligned),
	}
	for _, p := range aln.Path {
		pair := AlignedPair{Score: p.Score, IsGap: p.IsGap}
		if p.SourceIndex >= 0 && p.SourceIndex < len(source) {
			pair.SourceID = source[p.SourceIndex].ID
		}
		if p.TargetIndex >= 0 && p.TargetIndex < len(target) {
			pair.TargetID = target[p.TargetIndex].ID
		}
		out.Pairs = append(out.Pairs, pair)
	}
	out.SourceCoverage = fraction(distinct(aln.SourceAligned), len(source))
	out.TargetCoverage = fraction(distinct(aln.TargetAligned), len(target))
	return out
}

// FormatAlignments formats every alignment from a multi-alignment run.
func FormatAlignments(alns []SequenceAlignment, source, target Sequence) []FormattedAlignment {
	out := make([]FormattedAlignment, len(alns))
	for i, aln := range alns {
		out[i] = FormatAlignment(aln, source, target)
	}
	return out
}

// MatchesBySource groups matches under their source id, preserving rank order.
func MatchesBySource(matches []SimilarityMatch) map[string][]SimilarityMatch {
	out := make(map[string][]SimilarityMatch)
	for _, m := range matches {
		out[m.SourceID] = append(out[m.SourceID], m)
	}
	return out
}

func span(indices []int) Span {
	if len(indices) == 0 {
		return Span{Start: -1, End: -1}
	}
	lo, hi := indices[0], indices[0]
	for _, i := range indices[1:] {
		lo = min(lo, i)
		hi = max(hi, i)
	}
	return Span{Start: lo, End: hi}
}

func distinct(indices []int) int {
	seen := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		seen[i] = struct{}{}
	}
	return len(seen)
}

func fraction(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
