// Package dataset loads remote or local JSON documents once per process and shares them between
// concurrent callers.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"rep-lookup/internal/logger"
	"rep-lookup/internal/metrics"
)

const DefaultTimeout = 30 * time.Second

// Decoder turns a fetched document into the cached value.
type Decoder[T any] func(r io.Reader) (T, error)

// JSON decodes the document into T.
func JSON[T any]() Decoder[T] {
	return func(r io.Reader) (T, error) {
		var v T
		err := json.NewDecoder(r).Decode(&v)
		return v, err
	}
}

type options struct {
	timeout time.Duration
	ref     func(key string) string
}

type Option func(*options)

// WithTimeout bounds a single fetch, independent of any caller's deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRef maps a cache key to the reference handed to the Source. The default uses the key itself.
func WithRef(fn func(key string) string) Option { return func(o *options) { o.ref = fn } }

// Cache is a read-through cache keyed by string. A key is fetched at most once concurrently, a
// successful value is kept for the life of the process, and a failure is returned to every caller
// waiting on that fetch and then forgotten so the next Get tries again.
type Cache[T any] struct {
	name   string
	src    Source
	decode Decoder[T]
	opts   options

	mu    sync.RWMutex
	vals  map[string]T
	group singleflight.Group
}

func New[T any](name string, src Source, decode Decoder[T], opts ...Option) *Cache[T] {
	o := options{timeout: DefaultTimeout, ref: func(k string) string { return k }}
	for _, fn := range opts {
		fn(&o)
	}
	return &Cache[T]{name: name, src: src, decode: decode, opts: o, vals: make(map[string]T)}
}

// Peek returns a cached value without fetching.
func (c *Cache[T]) Peek(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vals[key]
	return v, ok
}

// Get returns the value for key, fetching it if needed. A caller whose ctx ends stops waiting, but
// the shared fetch keeps running for the others, bounded by the cache timeout.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, error) {
	if v, ok := c.Peek(key); ok {
		return v, nil
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.Peek(key); ok {
			return v, nil
		}
		v, err := c.fetch(fetchCtx, key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.vals[key] = v
		c.mu.Unlock()
		return v, nil
	})
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			var zero T
			return zero, r.Err
		}
		return r.Val.(T), nil
	}
}

func (c *Cache[T]) fetch(ctx context.Context, key string) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()

	ref := c.opts.ref(key)
	t0 := time.Now()
	logger.L().Debug("dataset_fetch", "dataset", c.name, "ref", ref)
	rc, err := c.src.Fetch(ctx, ref)
	if err != nil {
		metrics.DatasetFetchTotal.WithLabelValues(c.name, "error").Inc()
		logger.L().Warn("dataset_fetch_error", "dataset", c.name, "ref", ref, "err", err)
		return zero, fmt.Errorf("fetch %s %s: %w", c.name, ref, err)
	}
	defer rc.Close()
	v, err := c.decode(rc)
	if err != nil {
		metrics.DatasetFetchTotal.WithLabelValues(c.name, "decode_error").Inc()
		logger.L().Warn("dataset_decode_error", "dataset", c.name, "ref", ref, "err", err)
		return zero, fmt.Errorf("decode %s %s: %w", c.name, ref, err)
	}
	dur := time.Since(t0).Milliseconds()
	metrics.DatasetFetchTotal.WithLabelValues(c.name, "ok").Inc()
	metrics.DatasetFetchDurationMs.WithLabelValues(c.name).Observe(float64(dur))
	logger.L().Info("dataset_loaded", "dataset", c.name, "ref", ref, "duration_ms", dur)
	return v, nil
}
