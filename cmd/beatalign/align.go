// ABOUTME: CLI commands that run alignments: align, self and best.
// ABOUTME: Resolves narratives, applies parameter flags over config defaults and prints reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389-research/beatalign/internal/align"
	"github.com/2389-research/beatalign/internal/models"
)

var alignCmd = &cobra.Command{
	Use:   "align <source> [target]",
	Short: "Align two narratives",
	Long: `Align the beats of a source narrative against a target narrative.

Narratives are resolved by id inside the narratives directory, or by file path.
Modes: top-k-match (default), local-align, self-analysis (target omitted).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAlign,
}

var selfCmd = &cobra.Command{
	Use:   "self <narrative>",
	Short: "Find recurring beats within one narrative",
	Long:  "Match a narrative against itself, dropping each beat's match with itself.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelf,
}

var bestCmd = &cobra.Command{
	Use:   "best <narrative> <query...>",
	Short: "Find the beat that best matches a query",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runBest,
}

// Flags
var (
	alignMode   string
	alignFormat string
	alignParams paramFlags
	selfFormat  string
	selfParams  paramFlags
	bestFormat  string
)

// paramFlags holds alignment parameter flags. Only flags the user set
// override the configured defaults.
type paramFlags struct {
	topK            int
	threshold       float64
	matchScore      float64
	mismatch        float64
	gap             float64
	weight          float64
	maxAlignments   int
	minScore        float64
	includeMatrices bool
}

func (p *paramFlags) register(cmd *cobra.Command, local bool) {
	d := align.DefaultParams()
	f := cmd.Flags()
	f.IntVar(&p.topK, "top-k", d.TopK, "Matches kept per source beat")
	f.Float64Var(&p.threshold, "threshold", d.Threshold, "Minimum similarity for a match, in [-1, 1]")
	f.BoolVar(&p.includeMatrices, "include-matrices", false, "Include similarity and DP matrices in JSON output")
	if !local {
		return
	}
	f.Float64Var(&p.matchScore, "match-score", d.MatchScore, "Base score for a step at or above the threshold")
	f.Float64Var(&p.mismatch, "mismatch-penalty", d.MismatchPenalty, "Base score for a step below the threshold")
	f.Float64Var(&p.gap, "gap-penalty", d.GapPenalty, "Score added for each skipped beat")
	f.Float64Var(&p.weight, "similarity-weight", d.SimilarityWeight, "Multiplier applied to similarity on each step")
	f.IntVar(&p.maxAlignments, "max-alignments", d.MaxAlignments, "Non-overlapping local alignments to return")
	f.Float64Var(&p.minScore, "min-score", d.MinAlignmentScore, "Stop once the best remaining alignment scores below this")
}

func (p *paramFlags) apply(cmd *cobra.Command, base align.Params) align.Params {
	f := cmd.Flags()
	set := func(name string) bool {
		return f.Lookup(name) != nil && f.Changed(name)
	}
	if set("top-k") {
		base.TopK = p.topK
	}
	if set("threshold") {
		base.Threshold = p.threshold
	}
	if set("include-matrices") {
		base.IncludeMatrices = p.includeMatrices
	}
	if set("match-score") {
		base.MatchScore = p.matchScore
	}
	if set("mismatch-penalty") {
		base.MismatchPenalty = p.mismatch
	}
	if set("gap-penalty") {
		base.GapPenalty = p.gap
	}
	if set("similarity-weight") {
		base.SimilarityWeight = p.weight
	}
	if set("max-alignments") {
		base.MaxAlignments = p.maxAlignments
	}
	if set("min-score") {
		base.MinAlignmentScore = p.minScore
	}
	return base
}

func init() {
	rootCmd.AddCommand(alignCmd)
	rootCmd.AddCommand(selfCmd)
	rootCmd.AddCommand(bestCmd)

	alignCmd.Flags().StringVar(&alignMode, "mode", string(align.ModeTopK), "Mode: top-k-match, local-align or self-analysis")
	alignCmd.Flags().StringVar(&alignFormat, "format", "", "Output format: json or table (default: table on a terminal)")
	alignParams.register(alignCmd, true)

	selfCmd.Flags().StringVar(&selfFormat, "format", "", "Output format: json or table (default: table on a terminal)")
	selfParams.register(selfCmd, false)

	bestCmd.Flags().StringVar(&bestFormat, "format", "", "Output format: json or table (default: table on a terminal)")
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// loadSequence resolves a narrative reference to an ordered beat sequence.
func loadSequence(ref string) (*models.Narrative, align.Sequence, error) {
	n, err := globalNarratives.Resolve(ref)
	if err != nil {
		return nil, nil, err
	}
	seq, err := align.NewSequence(n.BeatIDs(), n.BeatTexts())
	if err != nil {
		return nil, nil, fmt.Errorf("narrative %s: %w", n.ID, err)
	}
	return n, seq, nil
}

// buildRequest resolves the narratives a request names.
func buildRequest(mode align.Mode, sourceRef, targetRef string, params align.Params) (align.Request, error) {
	source, sourceSeq, err := loadSequence(sourceRef)
	if err != nil {
		return align.Request{}, err
	}
	req := align.Request{Mode: mode, SourceName: source.ID, Source: sourceSeq, Params: params}
	if mode == align.ModeSelfAnalysis {
		return req, nil
	}
	if targetRef == "" {
		return align.Request{}, fmt.Errorf("%s needs a target narrative", mode)
	}
	target, targetSeq, err := loadSequence(targetRef)
	if err != nil {
		return align.Request{}, err
	}
	req.TargetName = target.ID
	req.Target = targetSeq
	return req, nil
}

// withRuntime opens the engine, runs fn and persists the embedding cache.
func withRuntime(ctx context.Context, fn func(*runtime) error) error {
	rt, err := openRuntime(ctx, globalConfig, globalLogger)
	if err != nil {
		return err
	}
	runErr := fn(rt)
	if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
		globalLogger.Warn("embedding cache not saved", "error", err)
	}
	return runErr
}

func runAlign(cmd *cobra.Command, args []string) error {
	mode, err := align.ParseMode(alignMode)
	if err != nil {
		return err
	}
	format, err := resolveFormat(alignFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	target := ""
	if len(args) == 2 {
		target = args[1]
	}
	req, err := buildRequest(mode, args[0], target, alignParams.apply(cmd, globalConfig.AlignParams()))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()
	return withRuntime(ctx, func(rt *runtime) error {
		report, err := rt.engine.Run(ctx, req)
		if err != nil {
			return err
		}
		return writeReport(cmd, report, format)
	})
}

func runSelf(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(selfFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	req, err := buildRequest(align.ModeSelfAnalysis, args[0], "", selfParams.apply(cmd, globalConfig.AlignParams()))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()
	return withRuntime(ctx, func(rt *runtime) error {
		report, err := rt.engine.Run(ctx, req)
		if err != nil {
			return err
		}
		return writeReport(cmd, report, format)
	})
}

// bestResult is the JSON shape of the best command.
type bestResult struct {
	Narrative string                 `json:"narrative"`
	Query     string                 `json:"query"`
	Found     bool                   `json:"found"`
	Match     *align.SimilarityMatch `json:"match,omitempty"`
}

func runBest(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(bestFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	n, seq, err := loadSequence(args[0])
	if err != nil {
		return err
	}
	query := strings.Join(args[1:], " ")

	ctx, cancel := signalContext(cmd)
	defer cancel()
	return withRuntime(ctx, func(rt *runtime) error {
		match, ok, err := rt.engine.FindBest(ctx, query, seq)
		if err != nil {
			return err
		}
		res := bestResult{Narrative: n.ID, Query: query, Found: ok}
		if ok {
			res.Match = &match
		}
		if format == formatJSON {
			return writeJSON(cmd, res)
		}
		if !ok {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "No beat in %s matches %q.\n", n.ID, query)
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (score %.3f)\n%s\n", match.TargetID, match.Score, match.TargetSnippet)
		return err
	})
}
