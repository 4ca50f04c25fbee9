// pkg/labeler/cache.go
package labeler

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/David-Botos/qguide-analysis/pkg/names"
)

// CachedInferrer memoizes successful answers of another inferrer so a name
// is sent to the source at most once while the entry lives.
type CachedInferrer struct {
	inner Inferrer
	cache *cache.Cache
}

// NewCachedInferrer wraps inner with a cache whose entries expire after ttl
func NewCachedInferrer(inner Inferrer, ttl time.Duration) *CachedInferrer {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &CachedInferrer{
		inner: inner,
		cache: cache.New(ttl, 10*time.Minute),
	}
}

// Infer answers from the cache when possible. Errors are never cached.
func (c *CachedInferrer) Infer(ctx context.Context, name string) (Inference, error) {
	key := names.Normalize(name)
	if cached, found := c.cache.Get(key); found {
		return cached.(Inference), nil
	}

	inf, err := c.inner.Infer(ctx, name)
	if err != nil {
		return inf, err
	}
	c.cache.SetDefault(key, inf)
	return inf, nil
}

// Len returns the number of cached answers
func (c *CachedInferrer) Len() int {
	return c.cache.ItemCount()
}
