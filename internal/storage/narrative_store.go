// ABOUTME: Interface definition for narrative storage.
// ABOUTME: Defines the contract for resolving, listing and saving narratives.
package storage

import (
	"errors"

	"github.com/2389-research/beatalign/internal/models"
)

// ErrNarrativeNotFound is returned when a reference matches no narrative.
var ErrNarrativeNotFound = errors.New("narrative not found")

// NarrativeStore defines operations for narrative persistence.
type NarrativeStore interface {
	// Resolve loads a narrative by id, or by file path when ref names an existing file.
	Resolve(ref string) (*models.Narrative, error)

	// List returns a summary of every readable narrative, sorted by id.
	List() ([]models.NarrativeInfo, error)

	// Save writes a narrative as markdown and returns the file path.
	Save(n *models.Narrative) (string, error)

	// Close releases any resources held by the store.
	Close() error
}
