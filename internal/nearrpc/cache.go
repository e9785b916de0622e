package nearrpc

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachingViewer wraps a Viewer with an expiring LRU over view results.
// Token metadata never changes after init and supply changes only on
// burns, so short TTLs already absorb most of the indexer's and
// verifier's repeated view traffic.
type CachingViewer struct {
	inner Viewer
	cache *expirable.LRU[string, *CallResult]
}

// NewCachingViewer wraps inner with an LRU of the given size and TTL.
func NewCachingViewer(inner Viewer, size int, ttl time.Duration) *CachingViewer {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &CachingViewer{
		inner: inner,
		cache: expirable.NewLRU[string, *CallResult](size, nil, ttl),
	}
}

var _ Viewer = (*CachingViewer)(nil)

// CallFunction serves final-finality views from cache when possible.
// Optimistic views bypass the cache.
func (c *CachingViewer) CallFunction(ctx context.Context, accountID, method string, args []byte, finality string) (*CallResult, error) {
	if finality == FinalityOptimistic {
		return c.inner.CallFunction(ctx, accountID, method, args, finality)
	}

	key := accountID + "|" + method + "|" + string(args)
	if res, ok := c.cache.Get(key); ok {
		return res, nil
	}

	res, err := c.inner.CallFunction(ctx, accountID, method, args, finality)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, res)
	return res, nil
}
