// ABOUTME: Core data models for narratives and their beats.
// ABOUTME: Shared by the narrative stores, the MCP tools and the CLI.
package models

import (
	"strconv"
	"strings"
	"time"
)

// Beat is one narrative unit: an id and its text.
type Beat struct {
	ID   string `json:"id" yaml:"id" toml:"id"`
	Text string `json:"text" yaml:"text" toml:"text"`
}

// Narrative is an ordered list of beats loaded from a file.
type Narrative struct {
	ID         string
	Title      string
	Beats      []Beat
	Path       string
	Format     string // md, yaml, toml or json
	ModifiedAt time.Time
}

// NarrativeInfo summarises a narrative for listings.
type NarrativeInfo struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	Beats      int       `json:"beats"`
	Format     string    `json:"format"`
	Path       string    `json:"path"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Info returns the listing summary for n.
func (n *Narrative) Info() NarrativeInfo {
	return NarrativeInfo{
		ID:         n.ID,
		Title:      n.Title,
		Beats:      len(n.Beats),
		Format:     n.Format,
		Path:       n.Path,
		ModifiedAt: n.ModifiedAt,
	}
}

// BeatIDs returns the beat ids in order.
func (n *Narrative) BeatIDs() []string {
	out := make([]string, len(n.Beats))
	for i, b := range n.Beats {
		out[i] = b.ID
	}
	return out
}

// BeatTexts returns the beat texts in order.
func (n *Narrative) BeatTexts() []string {
	out := make([]string, len(n.Beats))
	for i, b := range n.Beats {
		out[i] = b.Text
	}
	return out
}

// PositionalID is the id given to a beat that has none: its 1-based position.
func PositionalID(index int) string {
	return "beat-" + strconv.Itoa(index+1)
}

// BeatKey converts a markdown heading to a beat id.
func BeatKey(heading string) string {
	return strings.Join(strings.Fields(heading), " ")
}
