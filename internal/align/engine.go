// ABOUTME: Engine facade wiring matrix building, matching and alignment by mode.
// ABOUTME: Produces id-keyed, JSON-ready reports for the CLI and MCP front ends.
package align

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Mode selects what a run computes.
type Mode string

const (
	// ModeTopK ranks the best targets for every source element.
	ModeTopK Mode = "top-k-match"
	// ModeLocalAlign extracts contiguous local alignments.
	ModeLocalAlign Mode = "local-align"
	// ModeSelfAnalysis matches a sequence against itself to find recurring motifs.
	ModeSelfAnalysis Mode = "self-analysis"
)

// Modes lists the supported modes in display order.
var Modes = []Mode{ModeTopK, ModeLocalAlign, ModeSelfAnalysis}

// ParseMode accepts a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, s)
}

// Params carries every numeric knob for a run.
type Params struct {
	TopK              int     `json:"top_k" yaml:"top_k"`
	Threshold         float64 `json:"threshold" yaml:"threshold"`
	MatchScore        float64 `json:"match_score" yaml:"match_score"`
	MismatchPenalty   float64 `json:"mismatch_penalty" yaml:"mismatch_penalty"`
	GapPenalty        float64 `json:"gap_penalty" yaml:"gap_penalty"`
	SimilarityWeight  float64 `json:"similarity_weight" yaml:"similarity_weight"`
	MaxAlignments     int     `json:"max_alignments" yaml:"max_alignments"`
	MinAlignmentScore float64 `json:"min_alignment_score" yaml:"min_alignment_score"`
	IncludeMatrices   bool    `json:"include_matrices" yaml:"include_matrices"`
}

// DefaultParams returns the default run parameters.
func DefaultParams() Params {
	return Params{
		TopK:              DefaultTopK,
		Threshold:         DefaultThreshold,
		MatchScore:        DefaultMatchScore,
		MismatchPenalty:   DefaultMismatchPenalty,
		GapPenalty:        DefaultGapPenalty,
		SimilarityWeight:  DefaultSimilarityWeight,
		MaxAlignments:     1,
		MinAlignmentScore: DefaultMinAlignmentScore,
	}
}

// Scoring returns the local alignment scoring policy.
func (p Params) Scoring() Scoring {
	return Scoring{
		Threshold:        p.Threshold,
		MatchScore:       p.MatchScore,
		MismatchPenalty:  p.MismatchPenalty,
		GapPenalty:       p.GapPenalty,
		SimilarityWeight: p.SimilarityWeight,
	}
}

// MatchOptions returns the top-k settings.
func (p Params) MatchOptions() MatchOptions {
	return MatchOptions{TopK: p.TopK, Threshold: p.Threshold}
}

// Validate checks the parameters a mode uses.
func (p Params) Validate(mode Mode) error {
	switch mode {
	case ModeTopK, ModeSelfAnalysis:
		return p.MatchOptions().Validate()
	case ModeLocalAlign:
		if err := checkTopK(p.MaxAlignments); err != nil {
			return fmt.Errorf("max_alignments: %w", err)
		}
		if !isFinite(p.MinAlignmentScore) {
			return fmt.Errorf("%w: min_alignment_score must be finite", ErrInvalidInput)
		}
		return p.Scoring().Validate()
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}
}

// Request describes one run. Target is ignored in self-analysis mode.
type Request struct {
	Mode       Mode     `json:"mode"`
	SourceName string   `json:"source,omitempty"`
	TargetName string   `json:"target,omitempty"`
	Source     Sequence `json:"-"`
	Target     Sequence `json:"-"`
	Params     Params   `json:"params"`
}

// LocalResult holds the alignments of a local-align run.
type LocalResult struct {
	Alignments []SequenceAlignment  `json:"alignments"`
	Formatted  []FormattedAlignment `json:"formatted"`
}

// Report is the JSON object emitted for a run.
type Report struct {
	RunID    string           `json:"run_id"`
	Mode     Mode             `json:"mode"`
	Source   string           `json:"source,omitempty"`
	Target   string           `json:"target,omitempty"`
	Params   Params           `json:"params"`
	Result   *AlignmentResult `json:"result,omitempty"`
	Local    *LocalResult     `json:"local,omitempty"`
	Duration time.Duration    `json:"duration_ns"`
}

// Engine runs requests against a matrix builder.
type Engine struct {
	builder  *Builder
	matcher  TopKMatcher
	maxCells int
	logger   *slog.Logger
}

// EngineOption configures optional Engine settings.
type EngineOption func(*Engine)

// WithMaxCells rejects runs whose matrix would exceed n cells. Zero disables the check.
func WithMaxCells(n int) EngineOption {
	return func(e *Engine) {
		e.maxCells = n
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine around builder.
func NewEngine(builder *Builder, opts ...EngineOption) *Engine {
	e := &Engine{builder: builder, logger: discardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run builds the similarity matrix for the request and runs its mode.
func (e *Engine) Run(ctx context.Context, req Request) (*Report, error) {
	if err := req.Params.Validate(req.Mode); err != nil {
		return nil, err
	}
	target := req.Target
	if req.Mode == ModeSelfAnalysis {
		target = req.Source
	}
	if err := e.checkBudget(len(req.Source), len(target)); err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "align.Run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("align.mode", string(req.Mode)),
			attribute.String("align.source", req.SourceName),
			attribute.String("align.target", req.TargetName),
		),
	)
	defer span.End()

	start := time.Now()
	m, err := e.builder.Build(ctx, req.Source, target)
	if err != nil {
		return nil, err
	}
	report, err := e.RunMatrix(req, m)
	if err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)
	e.logger.Info("alignment complete",
		"run_id", report.RunID,
		"mode", req.Mode,
		"source", req.SourceName,
		"target", req.TargetName,
		"rows", m.Rows,
		"cols", m.Cols,
		"duration", report.Duration,
	)
	return report, nil
}

// RunMatrix runs the request's mode over an already-built matrix. It never
// calls the provider.
func (e *Engine) RunMatrix(req Request, m Matrix) (*Report, error) {
	if err := req.Params.Validate(req.Mode); err != nil {
		return nil, err
	}
	if err := e.checkBudget(m.Rows, m.Cols); err != nil {
		return nil, err
	}
	report := &Report{
		RunID:  uuid.NewString(),
		Mode:   req.Mode,
		Source: req.SourceName,
		Target: req.TargetName,
		Params: req.Params,
	}

	switch req.Mode {
	case ModeTopK:
		res, err := e.matcher.Match(m, req.Source, req.Target, req.Params.MatchOptions())
		if err != nil {
			return nil, err
		}
		report.Result = stripResult(res, req.Params.IncludeMatrices)
	case ModeSelfAnalysis:
		report.Target = req.SourceName
		res, err := e.matcher.SelfAnalysis(m, req.Source, req.Params.MatchOptions())
		if err != nil {
			return nil, err
		}
		report.Result = stripResult(res, req.Params.IncludeMatrices)
	case ModeLocalAlign:
		if m.Rows != len(req.Source) || m.Cols != len(req.Target) {
			return nil, fmt.Errorf("%w: matrix is %dx%d but sequences are %dx%d",
				ErrInvalidInput, m.Rows, m.Cols, len(req.Source), len(req.Target))
		}
		multi := &MultiAligner{Local: NewLocalAligner(req.Params.Scoring()), MinScore: req.Params.MinAlignmentScore}
		alns, err := multi.MultiAlign(m, req.Params.MaxAlignments)
		if err != nil {
			return nil, err
		}
		formatted := FormatAlignments(alns, req.Source, req.Target)
		if !req.Params.IncludeMatrices {
			for i := range alns {
				alns[i].DPMatrix = nil
				alns[i].Directions = nil
			}
		}
		report.Local = &LocalResult{Alignments: alns, Formatted: formatted}
	}
	return report, nil
}

// FindBest scores a free-text query against target and returns the single
// best beat with a non-negative score.
func (e *Engine) FindBest(ctx context.Context, query string, target Sequence) (SimilarityMatch, bool, error) {
	source := Element{ID: "query", Text: query}
	m, err := e.builder.Build(ctx, Sequence{source}, target)
	if err != nil {
		return SimilarityMatch{}, false, err
	}
	var scores []float64
	if m.Rows > 0 {
		scores = m.Row(0)
	}
	return e.matcher.FindBestMatch(scores, source, target)
}

func (e *Engine) checkBudget(rows, cols int) error {
	if e.maxCells > 0 && rows*cols > e.maxCells {
		return fmt.Errorf("%w: %dx%d matrix exceeds the %d cell budget", ErrInvalidInput, rows, cols, e.maxCells)
	}
	return nil
}

func stripResult(res AlignmentResult, includeMatrix bool) *AlignmentResult {
	if !includeMatrix {
		res.SimilarityMatrix.Values = nil
	}
	return &res
}
