// ABOUTME: Builds the alignment engine from config: provider, embedding cache and vector store.
// ABOUTME: Seeds the cache from the persistent store and writes new vectors back on close.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/2389-research/beatalign/internal/align"
	"github.com/2389-research/beatalign/internal/config"
	"github.com/2389-research/beatalign/internal/embeddings"
	"github.com/2389-research/beatalign/internal/storage"
)

// runtime bundles an engine with the cache state that must be persisted.
type runtime struct {
	engine    *align.Engine
	cache     *trackedCache
	store     storage.VectorStore
	namespace string
	logger    *slog.Logger
}

// trackedCache counts writes so Close can tell whether anything new was
// embedded. Len alone misses writes into a full LRU.
type trackedCache struct {
	embeddings.Cache
	puts atomic.Int64
}

func (c *trackedCache) Put(key string, vec []float32) {
	c.Cache.Put(key, vec)
	c.puts.Add(1)
}

// openRuntime builds the engine described by cfg.
func openRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{logger: logger, namespace: cacheNamespace(cfg)}

	var builder *align.Builder
	switch cfg.Provider.Kind {
	case config.ProviderFuzzy:
		fuzzy, err := embeddings.NewFuzzySimilarity(cfg.Provider.FuzzyAlgorithm)
		if err != nil {
			return nil, err
		}
		builder = align.NewSimilarityBuilder(fuzzy.Similarity, align.WithBuilderLogger(logger))
	case config.ProviderLexical, config.ProviderRemote:
		if err := rt.openCache(ctx, cfg); err != nil {
			return nil, err
		}
		opts := []align.BuilderOption{align.WithBuilderLogger(logger)}
		if rt.cache != nil {
			opts = append(opts, align.WithCache(rt.cache))
		}
		builder = align.NewBuilder(newProvider(cfg), opts...)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}

	rt.engine = align.NewEngine(builder,
		align.WithMaxCells(cfg.Align.MaxCells),
		align.WithLogger(logger),
	)
	return rt, nil
}

func newProvider(cfg *config.Config) embeddings.Provider {
	if cfg.Provider.Kind == config.ProviderRemote {
		return embeddings.NewRemoteEmbedder(cfg.Provider.APIURL, cfg.Provider.APIKey, cfg.Provider.Model,
			embeddings.WithBatchSize(cfg.Provider.BatchSize))
	}
	return embeddings.NewLexicalEmbedder(cfg.Provider.Dimensions, true)
}

// cacheNamespace separates vectors from different providers and models that
// share one store.
func cacheNamespace(cfg *config.Config) string {
	switch cfg.Provider.Kind {
	case config.ProviderRemote:
		return "remote:" + cfg.Provider.Model
	case config.ProviderLexical:
		dim := cfg.Provider.Dimensions
		if dim <= 0 {
			dim = embeddings.DefaultLexicalDimension
		}
		return fmt.Sprintf("lexical:%d", dim)
	default:
		return cfg.Provider.Kind
	}
}

func (rt *runtime) openCache(ctx context.Context, cfg *config.Config) error {
	if cfg.Cache.Backend == config.CacheNone {
		return nil
	}

	var seed map[string][]float32
	if cfg.Cache.Backend == config.CacheFile || cfg.Cache.Backend == config.CacheSQLite {
		path, err := cfg.GetCachePath()
		if err != nil {
			return fmt.Errorf("failed to resolve cache path: %w", err)
		}
		store, err := storage.OpenVectorStore(cfg.Cache.Backend, path)
		if err != nil {
			return fmt.Errorf("failed to open vector store: %w", err)
		}
		stored, err := store.Load(ctx)
		if err != nil {
			// A broken store only costs re-embedding.
			rt.logger.Warn("ignoring unreadable vector store", "path", path, "error", err)
		}
		rt.store = store
		seed = rt.strip(stored)
	}

	var cache embeddings.Cache
	if cfg.Cache.MaxEntries > 0 {
		lru := embeddings.NewLRUCache(cfg.Cache.MaxEntries)
		for k, v := range seed {
			lru.Put(k, v)
		}
		cache = lru
	} else {
		cache = embeddings.NewMemoryCache(seed)
	}
	rt.cache = &trackedCache{Cache: cache}
	rt.logger.Debug("embedding cache ready", "backend", cfg.Cache.Backend, "entries", cache.Len())
	return nil
}

// strip keeps the entries of this runtime's namespace, without the prefix.
func (rt *runtime) strip(stored map[string][]float32) map[string][]float32 {
	prefix := rt.namespace + "|"
	out := make(map[string][]float32)
	for k, v := range stored {
		if key, ok := strings.CutPrefix(k, prefix); ok {
			out[key] = v
		}
	}
	return out
}

// Close writes the cache back to the vector store when anything was embedded.
func (rt *runtime) Close(ctx context.Context) error {
	if rt.store == nil {
		return nil
	}
	defer func() { _ = rt.store.Close() }()

	if rt.cache.puts.Load() == 0 {
		return nil
	}
	entries := rt.cache.Entries()
	prefixed := make(map[string][]float32, len(entries))
	for k, v := range entries {
		prefixed[rt.namespace+"|"+k] = v
	}
	if err := rt.store.Save(ctx, prefixed); err != nil {
		return fmt.Errorf("failed to persist embedding cache: %w", err)
	}
	rt.logger.Debug("embedding cache saved", "entries", len(prefixed))
	return nil
}
