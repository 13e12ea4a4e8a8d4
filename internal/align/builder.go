// ABOUTME: Builds the source×target similarity matrix from a pluggable provider.
// ABOUTME: Embeds only elements missing from the cache, then compares all vectors.
package align

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/2389-research/beatalign/internal/embeddings"
)

const tracerName = "github.com/2389-research/beatalign/internal/align"

// Builder produces similarity matrices. It uses either an embedding Provider
// (cacheable) or a combined SimilarityFunc.
type Builder struct {
	provider   embeddings.Provider
	similarity embeddings.SimilarityFunc
	cache      embeddings.Cache
	logger     *slog.Logger
}

// BuilderOption configures optional Builder dependencies.
type BuilderOption func(*Builder)

// WithCache sets the embedding cache shared across builds.
func WithCache(c embeddings.Cache) BuilderOption {
	return func(b *Builder) {
		b.cache = c
	}
}

// WithBuilderLogger sets the logger used for cache statistics.
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a builder that embeds with provider and compares with its Cosine.
func NewBuilder(provider embeddings.Provider, opts ...BuilderOption) *Builder {
	b := &Builder{provider: provider, logger: discardLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewSimilarityBuilder creates a builder around a combined similarity function.
// Caching does not apply.
func NewSimilarityBuilder(fn embeddings.SimilarityFunc, opts ...BuilderOption) *Builder {
	b := &Builder{similarity: fn, logger: discardLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the similarity matrix for source × target. An empty side
// yields an empty matrix without calling the provider.
func (b *Builder) Build(ctx context.Context, source, target Sequence) (Matrix, error) {
	if err := source.Validate(); err != nil {
		return Matrix{}, fmt.Errorf("source: %w", err)
	}
	if err := target.Validate(); err != nil {
		return Matrix{}, fmt.Errorf("target: %w", err)
	}
	if len(source) == 0 || len(target) == 0 {
		return EmptyMatrix(len(source), len(target)), nil
	}
	if b.provider == nil && b.similarity == nil {
		return Matrix{}, fmt.Errorf("%w: no similarity provider configured", ErrProviderFailure)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "align.BuildMatrix")
	defer span.End()
	span.SetAttributes(attribute.Int("align.rows", len(source)), attribute.Int("align.cols", len(target)))

	values, err := b.scores(ctx, source, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Matrix{}, err
	}

	m := Matrix{Rows: len(source), Cols: len(target), Values: values}
	if err := m.check(); err != nil {
		return Matrix{}, fmt.Errorf("%w: malformed similarity matrix: %w", ErrProviderFailure, err)
	}
	return m, nil
}

func (b *Builder) scores(ctx context.Context, source, target Sequence) ([][]float64, error) {
	if b.provider == nil {
		values, err := b.similarity(ctx, source.Texts(), target.Texts())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
		}
		return values, nil
	}

	vecA, err := b.vectors(ctx, source)
	if err != nil {
		return nil, err
	}
	vecB, err := b.vectors(ctx, target)
	if err != nil {
		return nil, err
	}
	values, err := b.provider.Cosine(vecA, vecB)
	if err != nil {
		return nil, fmt.Errorf("%w: compare: %w", ErrProviderFailure, err)
	}
	return values, nil
}

// vectors returns one vector per element, embedding only cache misses.
func (b *Builder) vectors(ctx context.Context, seq Sequence) ([][]float32, error) {
	out := make([][]float32, len(seq))
	var missIDs, missTexts []string
	var missPos []int
	for i, e := range seq {
		if b.cache != nil {
			if vec, ok := b.cache.Get(embeddings.CacheKey(e.ID, e.Text)); ok {
				out[i] = vec
				continue
			}
		}
		missIDs = append(missIDs, e.ID)
		missTexts = append(missTexts, e.Text)
		missPos = append(missPos, i)
	}
	b.logger.Debug("embedding lookup", "elements", len(seq), "misses", len(missIDs))
	if len(missIDs) == 0 {
		return out, nil
	}

	embedded, err := b.provider.Embed(ctx, missIDs, missTexts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %w", ErrProviderFailure, err)
	}
	for k, id := range missIDs {
		vec, ok := embedded[id]
		if !ok || len(vec) == 0 {
			return nil, fmt.Errorf("%w: no vector returned for %q", ErrProviderFailure, id)
		}
		out[missPos[k]] = vec
		if b.cache != nil {
			b.cache.Put(embeddings.CacheKey(id, missTexts[k]), vec)
		}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
