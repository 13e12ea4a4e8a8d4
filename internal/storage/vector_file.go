// ABOUTME: Single-file vector store guarded by an advisory file lock.
// ABOUTME: Uses a compact little-endian binary layout written atomically.
package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/gofrs/flock"
)

var vectorFileMagic = [4]byte{'B', 'A', 'V', 'C'}

const vectorFileVersion uint32 = 1

// FileVectorStore keeps all vectors in one file. Concurrent processes
// coordinate through a sibling ".lock" file.
type FileVectorStore struct {
	path string
	lock *flock.Flock
}

// NewFileVectorStore creates a store at path. The file is created on first save.
func NewFileVectorStore(path string) (*FileVectorStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("vector store path is required")
	}
	return &FileVectorStore{path: path, lock: flock.New(path + ".lock")}, nil
}

// Load implements VectorStore.
func (s *FileVectorStore) Load(ctx context.Context) (map[string][]float32, error) {
	if err := s.rlock(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = s.lock.Unlock() }()
	return s.read()
}

// Save implements VectorStore.
func (s *FileVectorStore) Save(ctx context.Context, entries map[string][]float32) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.wlock(ctx); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()

	existing, err := s.read()
	if err != nil {
		return err
	}
	for k, v := range entries {
		existing[k] = v
	}
	data, err := encodeVectors(existing)
	if err != nil {
		return err
	}
	if err := atomicWrite(s.path, data); err != nil {
		return fmt.Errorf("failed to write vector store: %w", err)
	}
	return nil
}

// Clear implements VectorStore.
func (s *FileVectorStore) Clear(ctx context.Context) error {
	if err := s.wlock(ctx); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear vector store: %w", err)
	}
	return nil
}

// Stats implements VectorStore.
func (s *FileVectorStore) Stats(ctx context.Context) (VectorStats, error) {
	stats := VectorStats{Backend: BackendFile, Path: s.path}
	entries, err := s.Load(ctx)
	if err != nil {
		return stats, err
	}
	stats.Entries = len(entries)
	if info, err := os.Stat(s.path); err == nil {
		stats.Bytes = info.Size()
		stats.UpdatedAt = info.ModTime()
	}
	return stats, nil
}

// Close implements VectorStore.
func (s *FileVectorStore) Close() error {
	return s.lock.Close()
}

func (s *FileVectorStore) rlock(ctx context.Context) error {
	if err := ensureParent(s.path); err != nil {
		return err
	}
	ok, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock vector store: %w", err)
	}
	if !ok {
		return fmt.Errorf("vector store %s is locked", s.path)
	}
	return nil
}

func (s *FileVectorStore) wlock(ctx context.Context) error {
	if err := ensureParent(s.path); err != nil {
		return err
	}
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock vector store: %w", err)
	}
	if !ok {
		return fmt.Errorf("vector store %s is locked", s.path)
	}
	return nil
}

func (s *FileVectorStore) read() (map[string][]float32, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string][]float32{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vector store: %w", err)
	}
	entries, err := decodeVectors(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt vector store %s: %w", s.path, err)
	}
	return entries, nil
}

// encodeVectors writes magic, version and count, then per entry the key
// length, key bytes, dimension and float32 components.
func encodeVectors(entries map[string][]float32) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(vectorFileMagic[:])
	w := func(v uint32) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	w(vectorFileVersion)
	w(uint32(len(entries)))
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		vec := entries[key]
		w(uint32(len(key)))
		buf.WriteString(key)
		w(uint32(len(vec)))
		for _, f := range vec {
			w(math.Float32bits(f))
		}
	}
	return buf.Bytes(), nil
}

func decodeVectors(data []byte) (map[string][]float32, error) {
	r := bufio.NewReader(bytes.NewReader(data))
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != vectorFileMagic {
		return nil, fmt.Errorf("bad magic")
	}
	var version, count uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != vectorFileVersion {
		return nil, fmt.Errorf("unsupported version %d", version)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	entries := make(map[string][]float32, min(count, 1<<16))
	for i := uint32(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if int(keyLen) > len(data) {
			return nil, fmt.Errorf("entry %d: key length %d out of range", i, keyLen)
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		var dim uint32
		if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if int(dim)*4 > len(data) {
			return nil, fmt.Errorf("entry %d: dimension %d out of range", i, dim)
		}
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries[string(key)] = vec
	}
	return entries, nil
}
