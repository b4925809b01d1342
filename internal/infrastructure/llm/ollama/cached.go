package ollama

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

const DefaultEmbeddingCacheSize = 1000

type modelNamer interface {
	ModelName() string
}

// CachedEmbedder keeps query embeddings in an LRU so sub-questions repeated
// across hops or requests are embedded once. Batch embeddings for ingestion
// pass straight through.
type CachedEmbedder struct {
	inner ports.Embedder
	model string
	cache *lru.Cache[string, []float32]
}

func NewCachedEmbedder(inner ports.Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)

	model := ""
	if named, ok := inner.(modelNamer); ok {
		model = named.ModelName()
	}
	return &CachedEmbedder{inner: inner, model: model, cache: cache}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text + "\x00" + c.model))
	return hex.EncodeToString(hash[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.Embed(ctx, texts)
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}
