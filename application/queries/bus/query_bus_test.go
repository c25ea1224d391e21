package bus

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string]interface{})}
}

func (c *fakeCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *fakeCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

func (c *fakeCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

// scopedQuery mimics a path query tied to one model
type scopedQuery struct {
	ModelID  string
	SourceID string
}

func (q scopedQuery) Validate() error { return nil }

func (q scopedQuery) CacheScope() string { return "model:" + q.ModelID }

func TestCachingMiddlewareScopesKeysByModel(t *testing.T) {
	cache := newFakeCache()
	caching := NewCachingMiddleware(cache, 30)

	calls := 0
	handler := caching.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		calls++
		return calls, nil
	}))

	ctx := context.Background()
	q := scopedQuery{ModelID: "m1", SourceID: "a"}

	first, err := handler.Handle(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	// Second ask is served from cache
	second, err := handler.Handle(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, second)
	assert.Equal(t, 1, calls)

	keys := cache.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "model:m1:"))
}

func TestCachedResultsDropWithModelScope(t *testing.T) {
	cache := newFakeCache()
	caching := NewCachingMiddleware(cache, 30)

	answer := "before"
	handler := caching.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return answer, nil
	}))

	ctx := context.Background()
	q := scopedQuery{ModelID: "m1", SourceID: "a"}

	got, err := handler.Handle(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "before", got)

	// A write to the model drops its scope; the next ask recomputes
	answer = "after"
	require.NoError(t, cache.DeletePrefix(ctx, "model:m1"))

	got, err = handler.Handle(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "after", got)
}

func TestCachingMiddlewareSeparatesModels(t *testing.T) {
	cache := newFakeCache()
	caching := NewCachingMiddleware(cache, 30)

	handler := caching.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return query.(scopedQuery).ModelID, nil
	}))

	ctx := context.Background()
	_, err := handler.Handle(ctx, scopedQuery{ModelID: "m1", SourceID: "a"})
	require.NoError(t, err)
	_, err = handler.Handle(ctx, scopedQuery{ModelID: "m2", SourceID: "a"})
	require.NoError(t, err)

	require.NoError(t, cache.DeletePrefix(ctx, "model:m1"))

	keys := cache.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "model:m2:"))
}
