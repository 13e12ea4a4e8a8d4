// ABOUTME: MCP tool implementations for narrative alignment.
// ABOUTME: Registers align_narratives, find_best_beat, list_narratives, show_narrative, save_narrative.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/beatalign/internal/align"
	"github.com/2389-research/beatalign/internal/models"
	"github.com/2389-research/beatalign/internal/storage"
)

func (s *Server) registerAlignTools() {
	modes := make([]any, len(align.Modes))
	for i, m := range align.Modes {
		modes[i] = string(m)
	}

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "align_narratives",
		Description: "Align the beats of two stored narratives. Modes: top-k-match ranks the best target beats for every source beat, local-align finds the strongest ordered run of corresponding beats, self-analysis finds repeated beats within the source alone.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"source":              {Type: "string", Description: "Source narrative id"},
				"target":              {Type: "string", Description: "Target narrative id (ignored for self-analysis)"},
				"mode":                {Type: "string", Enum: modes, Description: "Alignment mode (default: top-k-match)"},
				"top_k":               {Type: "integer", Description: "Matches kept per source beat"},
				"threshold":           {Type: "number", Description: "Minimum similarity for a match, in [-1, 1]"},
				"max_alignments":      {Type: "integer", Description: "Non-overlapping local alignments to return"},
				"min_alignment_score": {Type: "number", Description: "Stop searching once the best remaining alignment scores below this"},
				"match_score":         {Type: "number", Description: "Base score for a beat pair at or above the threshold"},
				"mismatch_penalty":    {Type: "number", Description: "Base score for a beat pair below the threshold"},
				"gap_penalty":         {Type: "number", Description: "Score added for each skipped beat"},
				"similarity_weight":   {Type: "number", Description: "Multiplier on the raw similarity added to every pair score"},
				"include_matrices":    {Type: "boolean", Description: "Include the similarity and DP matrices in the output"},
			},
			Required: []string{"source"},
		},
	}, s.handleAlignNarratives)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "find_best_beat",
		Description: "Find the single beat of a stored narrative that best matches a free-text query.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":  {Type: "string", Description: "Free text to look up"},
				"target": {Type: "string", Description: "Narrative id to search"},
			},
			Required: []string{"query", "target"},
		},
	}, s.handleFindBestBeat)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_narratives",
		Description: "List the narratives available for alignment.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleListNarratives)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "show_narrative",
		Description: "Show every beat of a stored narrative in order.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"id": {Type: "string", Description: "Narrative id"},
			},
			Required: []string{"id"},
		},
	}, s.handleShowNarrative)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "save_narrative",
		Description: "Store a narrative so it can be aligned later. Replaces any narrative with the same id.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"id":    {Type: "string", Description: "Narrative id, used as the file name"},
				"title": {Type: "string", Description: "Optional display title"},
				"beats": {
					Type:        "array",
					Description: "Ordered beats",
					Items: &jsonschema.Schema{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"id":   {Type: "string", Description: "Beat id, unique within the narrative"},
							"text": {Type: "string", Description: "Beat text"},
						},
						Required: []string{"id", "text"},
					},
				},
			},
			Required: []string{"id", "beats"},
		},
	}, s.handleSaveNarrative)
}

type alignArgs struct {
	Source            string   `json:"source"`
	Target            string   `json:"target"`
	Mode              string   `json:"mode"`
	TopK              *int     `json:"top_k"`
	Threshold         *float64 `json:"threshold"`
	MaxAlignments     *int     `json:"max_alignments"`
	MinAlignmentScore *float64 `json:"min_alignment_score"`
	MatchScore        *float64 `json:"match_score"`
	MismatchPenalty   *float64 `json:"mismatch_penalty"`
	GapPenalty        *float64 `json:"gap_penalty"`
	SimilarityWeight  *float64 `json:"similarity_weight"`
	IncludeMatrices   *bool    `json:"include_matrices"`
}

// params overlays the explicitly set arguments on the server defaults.
func (a alignArgs) params(defaults align.Params) align.Params {
	p := defaults
	if a.TopK != nil {
		p.TopK = *a.TopK
	}
	if a.Threshold != nil {
		p.Threshold = *a.Threshold
	}
	if a.MaxAlignments != nil {
		p.MaxAlignments = *a.MaxAlignments
	}
	if a.MinAlignmentScore != nil {
		p.MinAlignmentScore = *a.MinAlignmentScore
	}
	if a.MatchScore != nil {
		p.MatchScore = *a.MatchScore
	}
	if a.MismatchPenalty != nil {
		p.MismatchPenalty = *a.MismatchPenalty
	}
	if a.GapPenalty != nil {
		p.GapPenalty = *a.GapPenalty
	}
	if a.SimilarityWeight != nil {
		p.SimilarityWeight = *a.SimilarityWeight
	}
	if a.IncludeMatrices != nil {
		p.IncludeMatrices = *a.IncludeMatrices
	}
	return p
}

func (s *Server) handleAlignNarratives(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args alignArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	mode := align.ModeTopK
	if args.Mode != "" {
		m, err := align.ParseMode(args.Mode)
		if err != nil {
			return toolError("%v", err), nil
		}
		mode = m
	}

	source, sourceSeq, errResult := s.loadSequence(args.Source)
	if errResult != nil {
		return errResult, nil
	}
	alignReq := align.Request{
		Mode:       mode,
		SourceName: source.ID,
		Source:     sourceSeq,
		Params:     args.params(s.defaults),
	}
	if mode != align.ModeSelfAnalysis {
		if args.Target == "" {
			return toolError("target is required for %s", mode), nil
		}
		target, targetSeq, errResult := s.loadSequence(args.Target)
		if errResult != nil {
			return errResult, nil
		}
		alignReq.TargetName = target.ID
		alignReq.Target = targetSeq
	}

	report, err := s.engine.Run(ctx, alignReq)
	if err != nil {
		s.logger.Warn("align_narratives failed", "source", args.Source, "target", args.Target, "error", err)
		return toolError("alignment failed: %v", err), nil
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return toolError("failed to encode report: %v", err), nil
	}
	return textResult(string(out)), nil
}

func (s *Server) handleFindBestBeat(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Query  string `json:"query"`
		Target string `json:"target"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return toolError("query is required"), nil
	}

	target, seq, errResult := s.loadSequence(args.Target)
	if errResult != nil {
		return errResult, nil
	}

	match, ok, err := s.engine.FindBest(ctx, args.Query, seq)
	if err != nil {
		return toolError("search failed: %v", err), nil
	}
	if !ok {
		return textResult(fmt.Sprintf("No beat in %s matches the query.", target.ID)), nil
	}
	return textResult(fmt.Sprintf("Best match in %s: %s (score %.3f)\n\n%s",
		target.ID, match.TargetID, match.Score, beatText(target, match.TargetID))), nil
}

func (s *Server) handleListNarratives(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	infos, err := s.narratives.List()
	if err != nil {
		return toolError("failed to list narratives: %v", err), nil
	}
	if len(infos) == 0 {
		return textResult("No narratives found."), nil
	}

	var sb strings.Builder
	for _, info := range infos {
		title := ""
		if info.Title != "" {
			title = fmt.Sprintf(" %q", info.Title)
		}
		sb.WriteString(fmt.Sprintf("- %s%s: %d beats [%s] %s\n", info.ID, title, info.Beats, info.Format, info.Path))
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleShowNarrative(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	n, errResult := s.resolve(args.ID)
	if errResult != nil {
		return errResult, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Narrative: %s\n", n.ID))
	if n.Title != "" {
		sb.WriteString(fmt.Sprintf("Title: %s\n", n.Title))
	}
	for i, b := range n.Beats {
		sb.WriteString(fmt.Sprintf("\n%d. [%s] %s\n", i+1, b.ID, b.Text))
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleSaveNarrative(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID    string        `json:"id"`
		Title string        `json:"title"`
		Beats []models.Beat `json:"beats"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if len(args.Beats) == 0 {
		return toolError("at least one beat is required"), nil
	}

	n := &models.Narrative{ID: strings.TrimSpace(args.ID), Title: args.Title, Beats: args.Beats}
	path, err := s.narratives.Save(n)
	if err != nil {
		return toolError("failed to save narrative: %v", err), nil
	}
	return textResult(fmt.Sprintf("Narrative saved: %s (%d beats)\nPath: %s", n.ID, len(n.Beats), path)), nil
}

// resolve loads a narrative by id. File paths are refused so tool callers
// stay inside the narratives directory.
func (s *Server) resolve(id string) (*models.Narrative, *gomcp.CallToolResult) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, toolError("narrative id is required")
	}
	if strings.ContainsAny(id, `/\`) {
		return nil, toolError("narrative id %q must not be a path", id)
	}
	n, err := s.narratives.Resolve(id)
	if errors.Is(err, storage.ErrNarrativeNotFound) {
		return nil, toolError("narrative %q not found", id)
	}
	if err != nil {
		return nil, toolError("failed to load narrative: %v", err)
	}
	return n, nil
}

func (s *Server) loadSequence(id string) (*models.Narrative, align.Sequence, *gomcp.CallToolResult) {
	n, errResult := s.resolve(id)
	if errResult != nil {
		return nil, nil, errResult
	}
	seq, err := align.NewSequence(n.BeatIDs(), n.BeatTexts())
	if err != nil {
		return nil, nil, toolError("narrative %s: %v", n.ID, err)
	}
	return n, seq, nil
}

func beatText(n *models.Narrative, id string) string {
	for _, b := range n.Beats {
		if b.ID == id {
			return b.Text
		}
	}
	return ""
}

func textResult(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}

// toolError creates an error result for MCP tool responses.
func toolError(format string, args ...any) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
