package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/202030481266/FengWenServer/internal/domain"
)

func TestVerificationStore_StoreAndGet(t *testing.T) {
	client := setupTestClient(t)
	store := NewVerificationStore(client.Underlying())
	ctx := context.Background()

	require.NoError(t, store.StoreCode(ctx, "alice@example.com", "123456", 5*time.Minute))

	code, err := store.GetCode(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)
}

func TestVerificationStore_GetCode_Missing(t *testing.T) {
	client := setupTestClient(t)
	store := NewVerificationStore(client.Underlying())

	_, err := store.GetCode(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestVerificationStore_CodeExpires(t *testing.T) {
	client := setupTestClient(t)
	store := NewVerificationStore(client.Underlying())
	ctx := context.Background()

	require.NoError(t, store.StoreCode(ctx, "bob@example.com", "654321", 100*time.Millisecond))
	time.Sleep(200 * time.Millisecond)

	_, err := store.GetCode(ctx, "bob@example.com")
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestVerificationStore_ConsumeCode(t *testing.T) {
	client := setupTestClient(t)
	store := NewVerificationStore(client.Underlying())
	ctx := context.Background()

	require.NoError(t, store.StoreCode(ctx, "carol@example.com", "111222", 5*time.Minute))
	require.NoError(t, store.ConsumeCode(ctx, "carol@example.com", 10*time.Minute))

	// Code is gone, verified flag is set
	_, err := store.GetCode(ctx, "carol@example.com")
	assert.ErrorIs(t, err, domain.ErrCodeExpired)

	verified, err := store.IsVerified(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestVerificationStore_IsVerified_Default(t *testing.T) {
	client := setupTestClient(t)
	store := NewVerificationStore(client.Underlying())

	verified, err := store.IsVerified(context.Background(), "fresh@example.com")
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestVerificationStore_Clear(t *testing.T) {
	client := setupTestClient(t)
	store := NewVerificationStore(client.Underlying())
	ctx := context.Background()

	require.NoError(t, store.StoreCode(ctx, "dave@example.com", "999000", 5*time.Minute))
	require.NoError(t, store.ConsumeCode(ctx, "dave@example.com", 10*time.Minute))
	require.NoError(t, store.Clear(ctx, "dave@example.com"))

	verified, err := store.IsVerified(ctx, "dave@example.com")
	require.NoError(t, err)
	assert.False(t, verified)
}
