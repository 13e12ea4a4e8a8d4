// ABOUTME: Tests for embeddings endpoint validation.
// ABOUTME: Uses httptest to verify the probe request, auth header and error handling.
package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateConnection_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("expected /v1/embeddings, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected bearer test-key, got %s", r.Header.Get("Authorization"))
		}
		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "test-model" || len(body.Input) != 1 {
			t.Errorf("unexpected request body %+v", body)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	dim, err := ValidateConnection(context.Background(), server.URL+"/v1/", "test-key", "test-model")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if dim != 3 {
		t.Errorf("expected dimension 3, got %d", dim)
	}
}

func TestValidateConnection_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	if _, err := ValidateConnection(context.Background(), server.URL, "bad-key", "test-model"); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestValidateConnection_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`internal error`))
	}))
	defer server.Close()

	if _, err := ValidateConnection(context.Background(), server.URL, "test-key", "test-model"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestValidateConnection_MissingModel(t *testing.T) {
	if _, err := ValidateConnection(context.Background(), "http://localhost:1", "test-key", ""); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestValidateConnection_Unreachable(t *testing.T) {
	if _, err := ValidateConnection(context.Background(), "http://localhost:1", "test-key", "test-model"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestValidateConnection_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ValidateConnection(ctx, server.URL, "test-key", "test-model"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
