// ABOUTME: Ordered (id, text) sequences fed to the engine.
// ABOUTME: Validates id uniqueness, which cache keys and coverage maps rely on.
package align

import (
	"fmt"
	"strings"
)

// Element is one narrative beat: a caller id and its text.
type Element struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Sequence is an ordered list of elements.
type Sequence []Element

// NewSequence zips parallel id and text lists.
func NewSequence(ids, texts []string) (Sequence, error) {
	if len(ids) != len(texts) {
		return nil, fmt.Errorf("%w: %d ids but %d texts", ErrInvalidInput, len(ids), len(texts))
	}
	seq := make(Sequence, len(ids))
	for i := range ids {
		seq[i] = Element{ID: ids[i], Text: texts[i]}
	}
	return seq, seq.Validate()
}

// IDs returns the element ids in order.
func (s Sequence) IDs() []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.ID
	}
	return out
}

// Texts returns the element texts in order.
func (s Sequence) Texts() []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.Text
	}
	return out
}

// Validate rejects empty or duplicate ids.
func (s Sequence) Validate() error {
	seen := make(map[string]int, len(s))
	for i, e := range s {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("%w: element %d has an empty id", ErrInvalidInput, i)
		}
		if prev, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: duplicate id %q at positions %d and %d", ErrInvalidInput, e.ID, prev, i)
		}
		seen[e.ID] = i
	}
	return nil
}

// snippet shortens text to maxLen runes, adding "..." if truncated.
func snippet(s string, maxLen int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen]) + "..."
}
