// ABOUTME: Decoders for YAML, TOML and JSON narrative files.
// ABOUTME: Each holds an optional id and title plus an ordered beats list.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/beatalign/internal/models"
)

// narrativeDocument is the shared shape of structured narrative files.
type narrativeDocument struct {
	ID    string        `json:"id" yaml:"id" toml:"id"`
	Title string        `json:"title" yaml:"title" toml:"title"`
	Beats []models.Beat `json:"beats" yaml:"beats" toml:"beats"`
}

// parseStructuredNarrative decodes a YAML, TOML or JSON narrative. Beats
// without an id get a positional one.
func parseStructuredNarrative(format string, data []byte) (*models.Narrative, error) {
	var doc narrativeDocument
	var err error
	switch format {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &doc)
	case "toml":
		err = toml.Unmarshal(data, &doc)
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	default:
		return nil, fmt.Errorf("unsupported narrative format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s narrative: %w", format, err)
	}

	for i := range doc.Beats {
		doc.Beats[i].ID = strings.TrimSpace(doc.Beats[i].ID)
		if doc.Beats[i].ID == "" {
			doc.Beats[i].ID = models.PositionalID(i)
		}
	}
	if doc.Beats == nil {
		doc.Beats = []models.Beat{}
	}
	return &models.Narrative{
		ID:    strings.TrimSpace(doc.ID),
		Title: strings.TrimSpace(doc.Title),
		Beats: doc.Beats,
	}, nil
}

// EncodeNarrative renders n in the given structured format, or markdown for "md".
func EncodeNarrative(n *models.Narrative, format string) ([]byte, error) {
	doc := narrativeDocument{ID: n.ID, Title: n.Title, Beats: n.Beats}
	switch format {
	case "md", "":
		content, err := RenderMarkdown(n)
		return []byte(content), err
	case "yaml", "yml":
		return yaml.Marshal(doc)
	case "toml":
		return toml.Marshal(doc)
	case "json":
		return json.MarshalIndent(doc, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported narrative format %q", format)
	}
}
