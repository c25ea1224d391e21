package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both wrappers must satisfy the RateLimiter port so the auth middleware
// can take either, or the distributed limiter, interchangeably.
var (
	_ RateLimiter = (*IPRateLimiter)(nil)
	_ RateLimiter = (*UserRateLimiter)(nil)
	_ RateLimiter = (*SlidingWindowLimiter)(nil)
)

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := NewSlidingWindowLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Other keys are unaffected
	allowed, err = limiter.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "k"))
	allowed, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestUserRateLimiterReset(t *testing.T) {
	ctx := context.Background()
	limiter := NewUserRateLimiter(1)

	allowed, err := limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Reset must address the same prefixed key Allow uses
	require.NoError(t, limiter.Reset(ctx, "user-1"))
	allowed, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIPRateLimiterReset(t *testing.T) {
	ctx := context.Background()
	limiter := NewIPRateLimiter(1)

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "10.0.0.1"))
	allowed, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}
