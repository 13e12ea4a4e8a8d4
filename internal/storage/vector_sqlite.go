// ABOUTME: SQLite-backed vector store using the pure-Go modernc driver.
// ABOUTME: One row per cache key with the vector packed as a float32 blob.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const vectorSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
	key        TEXT PRIMARY KEY,
	dim        INTEGER NOT NULL,
	vector     BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteVectorStore keeps vectors in a SQLite database.
type SQLiteVectorStore struct {
	path  string
	sqlDB *sql.DB
}

// OpenSQLiteVectorStore opens, creating if needed, the database at path.
func OpenSQLiteVectorStore(path string) (*SQLiteVectorStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := ensureParent(cleanPath); err != nil {
		return nil, err
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(vectorSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteVectorStore{path: cleanPath, sqlDB: sqlDB}, nil
}

// Load implements VectorStore.
func (s *SQLiteVectorStore) Load(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT key, dim, vector FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]float32)
	for rows.Next() {
		var key string
		var dim int
		var blob []byte
		if err := rows.Scan(&key, &dim, &blob); err != nil {
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		vec, err := unpackVector(blob, dim)
		if err != nil {
			return nil, fmt.Errorf("vector %q: %w", key, err)
		}
		out[key] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	return out, nil
}

// Save implements VectorStore.
func (s *SQLiteVectorStore) Save(ctx context.Context, entries map[string][]float32) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embeddings (key, dim, vector, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET dim = excluded.dim, vector = excluded.vector, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().UnixMilli()
	for key, vec := range entries {
		if _, err := stmt.ExecContext(ctx, key, len(vec), packVector(vec), now); err != nil {
			return fmt.Errorf("upsert vector %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Clear implements VectorStore.
func (s *SQLiteVectorStore) Clear(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM embeddings`); err != nil {
		return fmt.Errorf("clear vectors: %w", err)
	}
	return nil
}

// Stats implements VectorStore.
func (s *SQLiteVectorStore) Stats(ctx context.Context) (VectorStats, error) {
	stats := VectorStats{Backend: BackendSQLite, Path: s.path}
	var updated sql.NullInt64
	row := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*), MAX(updated_at) FROM embeddings`)
	if err := row.Scan(&stats.Entries, &updated); err != nil {
		return stats, fmt.Errorf("vector stats: %w", err)
	}
	if updated.Valid {
		stats.UpdatedAt = time.UnixMilli(updated.Int64).UTC()
	}
	if info, err := os.Stat(s.path); err == nil {
		stats.Bytes = info.Size()
	}
	return stats, nil
}

// Close releases the underlying SQLite connection.
func (s *SQLiteVectorStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func packVector(vec []float32) []byte {
	out := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func unpackVector(blob []byte, dim int) ([]float32, error) {
	if len(blob) != 4*dim {
		return nil, fmt.Errorf("blob has %d bytes for dimension %d", len(blob), dim)
	}
	out := make([]float32, dim)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return out, nil
}
