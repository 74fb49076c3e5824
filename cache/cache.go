package cache

import (
	"context"
	"time"

	"github.com/karlseguin/ccache/v3"
	"golang.org/x/sync/singleflight"
)

// Cache is an LRU keyed by string whose Fetch calls are collapsed per key,
// so concurrent misses of the same key invoke fetch once.
type Cache[T any] struct {
	c     *ccache.Cache[T]
	group singleflight.Group
}

func New[T any](maxSize int64) *Cache[T] {
	return &Cache[T]{
		c: ccache.New(
			ccache.Configure[T]().
				MaxSize(maxSize).
				GetsPerPromote(3).
				ItemsToPrune(1),
		),
		group: singleflight.Group{},
	}
}

func (c *Cache[T]) Get(k string) (T, bool) {
	if item := c.c.Get(k); nil != item && !item.Expired() {
		return item.Value(), true
	}
	var zero T
	return zero, false
}

// Fetch returns the cached value of k or loads it with fetch. Concurrent
// misses of k share one fetch, which runs detached from the cancellation of
// whichever caller started it; each caller still stops waiting when its own
// ctx ends.
func (c *Cache[T]) Fetch(ctx context.Context, k string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.Get(k); ok {
		return v, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k, func() (any, error) {
		item, err := c.c.Fetch(k, ttl, func() (T, error) { return fetch(fetchCtx) })
		if nil != err {
			return nil, err
		}
		return item.Value(), nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if nil != res.Err {
			return zero, res.Err
		}
		return res.Val.(T), nil //nolint:forcetypeassert
	}
}

func (c *Cache[T]) Stop() {
	c.c.Stop()
}
