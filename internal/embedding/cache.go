package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEncoder memoizes another encoder's vectors in an LRU keyed by text.
type CachedEncoder struct {
	inner Encoder
	cache *lru.Cache[string, []float32]
}

// NewCachedEncoder wraps inner with an LRU of size entries.
func NewCachedEncoder(inner Encoder, size int) (*CachedEncoder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachedEncoder{inner: inner, cache: cache}, nil
}

// Embed returns a copy of the cached vector for text, computing it on a miss.
func (c *CachedEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(text); ok {
		return cloneVector(cached), nil
	}
	emb, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, cloneVector(emb))
	return emb, nil
}

// Dimensions returns the wrapped encoder's dimension.
func (c *CachedEncoder) Dimensions() int {
	return c.inner.Dimensions()
}

// Len returns the number of cached entries.
func (c *CachedEncoder) Len() int {
	return c.cache.Len()
}

// Close purges the cache and closes the wrapped encoder.
func (c *CachedEncoder) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
