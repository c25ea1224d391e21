package bus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingCache struct {
	mu       sync.Mutex
	deleted  []string
	deleteOn error
}

func (c *recordingCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return nil, false
}

func (c *recordingCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	return nil
}

func (c *recordingCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, prefix)
	return c.deleteOn
}

func (c *recordingCache) deletedPrefixes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

// scopedCommand mimics a write against one model
type scopedCommand struct {
	ModelID string
}

func (cmd scopedCommand) Validate() error { return nil }

func (cmd scopedCommand) ModelScope() string { return "model:" + cmd.ModelID }

func TestCacheInvalidationMiddlewareDropsModelScope(t *testing.T) {
	cache := &recordingCache{}
	handler := CacheInvalidationMiddleware(cache, zap.NewNop())(
		CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			return nil
		}))

	err := handler.Handle(context.Background(), scopedCommand{ModelID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"model:m1"}, cache.deletedPrefixes())
}

func TestCacheInvalidationMiddlewareSkipsFailedCommands(t *testing.T) {
	cache := &recordingCache{}
	handler := CacheInvalidationMiddleware(cache, zap.NewNop())(
		CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			return errors.New("write rejected")
		}))

	err := handler.Handle(context.Background(), scopedCommand{ModelID: "m1"})
	require.Error(t, err)
	assert.Empty(t, cache.deletedPrefixes())
}

func TestCacheInvalidationMiddlewareToleratesCacheErrors(t *testing.T) {
	cache := &recordingCache{deleteOn: errors.New("cache unavailable")}
	handler := CacheInvalidationMiddleware(cache, zap.NewNop())(
		CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			return nil
		}))

	// Invalidation failures must not fail the write
	err := handler.Handle(context.Background(), scopedCommand{ModelID: "m1"})
	require.NoError(t, err)
}

func TestPipelineRunsInvalidationAfterHandler(t *testing.T) {
	cache := &recordingCache{}
	var order []string

	tracing := func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			order = append(order, "before")
			err := next.Handle(ctx, cmd)
			order = append(order, "after")
			return err
		})
	}

	pipeline := NewPipeline(tracing, CacheInvalidationMiddleware(cache, zap.NewNop()))
	handler := pipeline.Execute(CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		order = append(order, "handle")
		return nil
	}))

	err := handler.Handle(context.Background(), scopedCommand{ModelID: "m2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"before", "handle", "after"}, order)
	assert.Equal(t, []string{"model:m2"}, cache.deletedPrefixes())
}
