package redis

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendLimiter_AllowsFirstSend(t *testing.T) {
	client := setupTestClient(t)
	limiter := NewSendLimiter(client.Underlying(), clockwork.NewRealClock(), time.Minute, 10)

	allowed, err := limiter.Allow(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestSendLimiter_CooldownBlocksSecondSend(t *testing.T) {
	client := setupTestClient(t)
	limiter := NewSendLimiter(client.Underlying(), clockwork.NewRealClock(), time.Minute, 10)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "bob@example.com")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestSendLimiter_CooldownExpires(t *testing.T) {
	client := setupTestClient(t)
	limiter := NewSendLimiter(client.Underlying(), clockwork.NewRealClock(), 100*time.Millisecond, 10)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "carol@example.com")
	require.NoError(t, err)
	require.True(t, allowed)

	time.Sleep(200 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestSendLimiter_DailyCap(t *testing.T) {
	client := setupTestClient(t)
	limiter := NewSendLimiter(client.Underlying(), clockwork.NewRealClock(), time.Millisecond, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "dave@example.com")
		require.NoError(t, err)
		require.True(t, allowed, "send %d should be allowed", i+1)
		time.Sleep(5 * time.Millisecond)
	}

	allowed, err := limiter.Allow(ctx, "dave@example.com")
	require.NoError(t, err)
	assert.False(t, allowed, "fourth send should hit the daily cap")
}

func TestSendLimiter_CapIsPerAddress(t *testing.T) {
	client := setupTestClient(t)
	limiter := NewSendLimiter(client.Underlying(), clockwork.NewRealClock(), time.Millisecond, 1)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "erin@example.com")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "frank@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)
}
