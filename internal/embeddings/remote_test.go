// ABOUTME: Tests for the HTTP embedding client against a fake server.
// ABOUTME: Covers batching, response reordering, auth and error handling.
package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingServer answers with a vector whose first component is the input
// length, listing results in reverse order to exercise index handling.
func fakeEmbeddingServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/embeddings" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req remoteEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float32{float32(len(req.Input[i])), 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "model": req.Model})
	}))
}

func TestRemoteEmbedBatches(t *testing.T) {
	var requests atomic.Int32
	srv := fakeEmbeddingServer(t, &requests)
	defer srv.Close()

	r := NewRemoteEmbedder(srv.URL+"/", "secret", "test-model", WithBatchSize(2))
	assert.Zero(t, r.Dimension())

	out, err := r.Embed(context.Background(),
		[]string{"a", "b", "c"},
		[]string{"x", "yy", "zzz"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, []float32{1, 1}, out["a"])
	assert.Equal(t, []float32{2, 1}, out["b"])
	assert.Equal(t, []float32{3, 1}, out["c"])
	assert.Equal(t, 2, r.Dimension())
}

func TestRemoteEmbedErrors(t *testing.T) {
	var requests atomic.Int32
	srv := fakeEmbeddingServer(t, &requests)
	defer srv.Close()

	_, err := NewRemoteEmbedder(srv.URL, "wrong", "m").Embed(context.Background(), []string{"a"}, []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = NewRemoteEmbedder(srv.URL, "secret", "m").Embed(context.Background(), []string{"a"}, nil)
	assert.Error(t, err)

	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer short.Close()
	_, err = NewRemoteEmbedder(short.URL, "", "m").Embed(context.Background(), []string{"a"}, []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 vectors for 1 inputs")

	dup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]},{"index":0,"embedding":[2]}]}`))
	}))
	defer dup.Close()
	_, err = NewRemoteEmbedder(dup.URL, "", "m").Embed(context.Background(), []string{"a", "b"}, []string{"x", "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid index")
}

func TestRemoteEmbedEmptyInput(t *testing.T) {
	out, err := NewRemoteEmbedder("http://127.0.0.1:1", "", "m").Embed(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestValidateRemote(t *testing.T) {
	var requests atomic.Int32
	srv := fakeEmbeddingServer(t, &requests)
	defer srv.Close()

	dim, err := ValidateRemote(context.Background(), srv.URL, "secret", "m")
	require.NoError(t, err)
	assert.Equal(t, 2, dim)

	_, err = ValidateRemote(context.Background(), srv.URL, "wrong", "m")
	assert.Error(t, err)

	_, err = ValidateRemote(context.Background(), "", "secret", "m")
	assert.Error(t, err)
	assert.Equal(t, int32(2), requests.Load())
}
