package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationLockRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationLockRepository(time.Minute)

	ok, err := repo.Acquire(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Acquire(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must be rejected while held")

	ok, err = repo.Acquire(ctx, "conv-2")
	require.NoError(t, err)
	assert.True(t, ok, "other conversations are independent")

	require.NoError(t, repo.Release(ctx, "conv-1"))
	ok, err = repo.Acquire(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConversationLockExpires(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationLockRepository(20 * time.Millisecond)

	ok, _ := repo.Acquire(ctx, "conv-1")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	ok, _ = repo.Acquire(ctx, "conv-1")
	assert.True(t, ok)
}
