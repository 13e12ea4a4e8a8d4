// ABOUTME: HTTP client for OpenAI-compatible embedding endpoints.
// ABOUTME: Batches texts, restores response order, and traces each request.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBatchSize caps how many texts go into one request.
const DefaultBatchSize = 64

// RemoteEmbedder calls POST {apiURL}/embeddings.
type RemoteEmbedder struct {
	CosineComparer
	apiURL    string
	apiKey    string
	model     string
	batchSize int
	client    *http.Client
	dim       atomic.Int64
}

// RemoteOption configures optional RemoteEmbedder settings.
type RemoteOption func(*RemoteEmbedder)

// WithBatchSize sets how many texts are sent per request.
func WithBatchSize(n int) RemoteOption {
	return func(r *RemoteEmbedder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteEmbedder) {
		if c != nil {
			r.client = c
		}
	}
}

// NewRemoteEmbedder creates a client for the given endpoint and model.
func NewRemoteEmbedder(apiURL, apiKey, model string, opts ...RemoteOption) *RemoteEmbedder {
	r := &RemoteEmbedder{
		apiURL:    strings.TrimRight(apiURL, "/"),
		apiKey:    apiKey,
		model:     model,
		batchSize: DefaultBatchSize,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// remoteEmbedRequest is the JSON body sent to the embeddings endpoint.
type remoteEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// remoteEmbedResponse maps the embeddings endpoint response.
type remoteEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Dimension implements Embedder. It is 0 until the first successful call.
func (r *RemoteEmbedder) Dimension() int {
	return int(r.dim.Load())
}

// Embed implements Embedder.
func (r *RemoteEmbedder) Embed(ctx context.Context, ids, texts []string) (map[string][]float32, error) {
	if len(ids) != len(texts) {
		return nil, fmt.Errorf("remote embed: %d ids but %d texts", len(ids), len(texts))
	}
	out := make(map[string][]float32, len(ids))
	for start := 0; start < len(texts); start += r.batchSize {
		end := min(start+r.batchSize, len(texts))
		vecs, err := r.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for i, vec := range vecs {
			out[ids[start+i]] = vec
		}
	}
	return out, nil
}

func (r *RemoteEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := otel.Tracer("github.com/2389-research/beatalign/internal/embeddings").Start(ctx, "embeddings.RemoteEmbed",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("embeddings.batch_size", len(texts)), attribute.String("embeddings.model", r.model))

	vecs, err := r.post(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return vecs, nil
}

func (r *RemoteEmbedder) post(ctx context.Context, texts []string) ([][]float32, error) {
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = NormalizeText(t)
	}
	body, err := json.Marshal(remoteEmbedRequest{Model: r.model, Input: normalized})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.apiURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, fmt.Errorf("embedding API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed remoteEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(parsed.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(texts) || vecs[d.Index] != nil {
			return nil, fmt.Errorf("embedding API returned invalid index %d", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embedding API returned an empty vector at index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	r.dim.Store(int64(len(vecs[0])))
	return vecs, nil
}

// ValidateRemote embeds a single probe text to confirm that the endpoint,
// key and model are usable. It returns the reported vector dimension.
func ValidateRemote(ctx context.Context, apiURL, apiKey, model string) (int, error) {
	if strings.TrimSpace(apiURL) == "" || strings.TrimSpace(model) == "" {
		return 0, fmt.Errorf("remote embedder needs both an API URL and a model")
	}
	r := NewRemoteEmbedder(apiURL, apiKey, model, WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
	if _, err := r.Embed(ctx, []string{"probe"}, []string{"connection check"}); err != nil {
		return 0, err
	}
	return r.Dimension(), nil
}
