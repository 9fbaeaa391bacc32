package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_AllowsUpToMax(t *testing.T) {
	limiter := NewMemoryLimiter()
	userID := uuid.New()
	class := Class{Name: "test", Max: 3, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < class.Max; i++ {
		result, err := limiter.Check(ctx, userID, class)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "call %d should be allowed", i+1)
		assert.Equal(t, class.Max-i-1, result.Remaining)
	}

	result, err := limiter.Check(ctx, userID, class)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	limiter := NewMemoryLimiter()
	userID := uuid.New()
	class := Class{Name: "test", Max: 1, Window: 20 * time.Millisecond}
	ctx := context.Background()

	result, err := limiter.Check(ctx, userID, class)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Check(ctx, userID, class)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	time.Sleep(30 * time.Millisecond)

	result, err = limiter.Check(ctx, userID, class)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "a fresh window starts after the reset time")
}

func TestMemoryLimiter_UsersAndClassesIsolated(t *testing.T) {
	limiter := NewMemoryLimiter()
	class := Class{Name: "test", Max: 1, Window: time.Minute}
	other := Class{Name: "other", Max: 1, Window: time.Minute}
	userA := uuid.New()
	userB := uuid.New()
	ctx := context.Background()

	result, _ := limiter.Check(ctx, userA, class)
	assert.True(t, result.Allowed)
	result, _ = limiter.Check(ctx, userA, class)
	assert.False(t, result.Allowed)

	// Different user, same class.
	result, _ = limiter.Check(ctx, userB, class)
	assert.True(t, result.Allowed)

	// Same user, different class.
	result, _ = limiter.Check(ctx, userA, other)
	assert.True(t, result.Allowed)
}

func TestMemoryLimiter_CompactDropsExpiredWindows(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	short := Class{Name: "short", Max: 1, Window: time.Millisecond}
	long := Class{Name: "long", Max: 1, Window: time.Hour}

	_, _ = limiter.Check(ctx, uuid.New(), short)
	_, _ = limiter.Check(ctx, uuid.New(), long)

	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, limiter.Compact())
	assert.Equal(t, 0, limiter.Compact())
}
