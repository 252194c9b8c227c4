package cache

import (
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Loader fronts a Cache with a singleflight group so concurrent misses for
// the same key run the load function once.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
	gen   atomic.Uint64
}

// NewLoader wraps c.
func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key or computes and stores it.
// Errors are not cached.
func (l *Loader[T]) Get(key string, load func() (T, error)) (T, error) {
	gen := l.gen.Load()
	key = strconv.FormatUint(gen, 10) + "/" + key
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		// A load that raced with Invalidate must not repopulate the cache.
		if l.gen.Load() == gen {
			l.cache.Set(key, v)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops every cached value.
func (l *Loader[T]) Invalidate() {
	l.gen.Add(1)
	l.cache.Purge()
}
