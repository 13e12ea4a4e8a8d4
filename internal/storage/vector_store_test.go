// ABOUTME: Tests for the file and SQLite vector stores.
// ABOUTME: Runs one contract suite against both backends plus format edge cases.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func openStores(t *testing.T) map[string]VectorStore {
	t.Helper()
	dir := t.TempDir()
	file, err := OpenVectorStore(BackendFile, filepath.Join(dir, "vectors.bin"))
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	db, err := OpenVectorStore(BackendSQLite, filepath.Join(dir, "vectors.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = file.Close()
		_ = db.Close()
	})
	return map[string]VectorStore{BackendFile: file, BackendSQLite: db}
}

func TestVectorStoreContract(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load on empty store: %v", err)
			}
			if len(got) != 0 {
				t.Fatalf("expected empty store, got %d entries", len(got))
			}

			first := map[string][]float32{
				"b1#aa": {0.1, -0.2, 0.3},
				"b2#bb": {1, 0},
			}
			if err := store.Save(ctx, first); err != nil {
				t.Fatalf("Save error: %v", err)
			}
			if err := store.Save(ctx, map[string][]float32{"b2#bb": {0, 1}, "b3#cc": {5}}); err != nil {
				t.Fatalf("second Save error: %v", err)
			}

			got, err = store.Load(ctx)
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			want := map[string][]float32{
				"b1#aa": {0.1, -0.2, 0.3},
				"b2#bb": {0, 1},
				"b3#cc": {5},
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Load mismatch:\n got %v\nwant %v", got, want)
			}

			stats, err := store.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats error: %v", err)
			}
			if stats.Entries != 3 || stats.Backend != name || stats.Bytes == 0 {
				t.Errorf("unexpected stats: %+v", stats)
			}

			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear error: %v", err)
			}
			got, _ = store.Load(ctx)
			if len(got) != 0 {
				t.Errorf("expected empty store after Clear, got %d", len(got))
			}
		})
	}
}

func TestFileVectorStoreConcurrentSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "vectors.bin")
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store, err := NewFileVectorStore(path)
			if err != nil {
				t.Errorf("NewFileVectorStore error: %v", err)
				return
			}
			defer func() { _ = store.Close() }()
			key := string(rune('a' + w))
			if err := store.Save(context.Background(), map[string][]float32{key: {float32(w)}}); err != nil {
				t.Errorf("Save error: %v", err)
			}
		}()
	}
	wg.Wait()

	store, _ := NewFileVectorStore(path)
	defer func() { _ = store.Close() }()
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("expected 4 entries from separate writers, got %d", len(got))
	}
}

func TestFileVectorStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	if err := os.WriteFile(path, []byte("not a vector file"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	store, _ := NewFileVectorStore(path)
	defer func() { _ = store.Close() }()
	if _, err := store.Load(context.Background()); err == nil {
		t.Error("expected corrupt store error")
	}
}

func TestVectorCodecTruncated(t *testing.T) {
	data, err := encodeVectors(map[string][]float32{"k": {1, 2, 3}})
	if err != nil {
		t.Fatalf("encodeVectors error: %v", err)
	}
	if _, err := decodeVectors(data[:len(data)-2]); err == nil {
		t.Error("expected truncated data to fail")
	}
	got, err := decodeVectors(data)
	if err != nil {
		t.Fatalf("decodeVectors error: %v", err)
	}
	if !reflect.DeepEqual(got["k"], []float32{1, 2, 3}) {
		t.Errorf("unexpected vector %v", got["k"])
	}
}

func TestOpenVectorStoreUnknownBackend(t *testing.T) {
	if _, err := OpenVectorStore("redis", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Error("expected unknown backend error")
	}
}
