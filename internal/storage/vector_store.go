// ABOUTME: Interface and factory for persistent embedding vector stores.
// ABOUTME: Lets the embedding cache survive between CLI runs.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// lockRetryDelay is how often a blocked lock attempt retries.
const lockRetryDelay = 50 * time.Millisecond

// Vector store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// VectorStore persists cached embedding vectors keyed by cache key.
type VectorStore interface {
	// Load returns every stored vector.
	Load(ctx context.Context) (map[string][]float32, error)

	// Save upserts entries, keeping vectors already stored under other keys.
	Save(ctx context.Context, entries map[string][]float32) error

	// Clear removes every stored vector.
	Clear(ctx context.Context) error

	// Stats describes the store's contents.
	Stats(ctx context.Context) (VectorStats, error)

	// Close releases any resources held by the store.
	Close() error
}

// VectorStats summarises a vector store.
type VectorStats struct {
	Backend   string    `json:"backend"`
	Path      string    `json:"path"`
	Entries   int       `json:"entries"`
	Bytes     int64     `json:"bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OpenVectorStore opens the store for backend at path.
func OpenVectorStore(backend, path string) (VectorStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendFile, "":
		return NewFileVectorStore(path)
	case BackendSQLite:
		return OpenSQLiteVectorStore(path)
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", backend)
	}
}

func ensureParent(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return nil
}
