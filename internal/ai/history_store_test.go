package ai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistoryStore(t *testing.T) (*HistoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHistoryStore(client, time.Hour), mr
}

func TestHistoryRoundTrip(t *testing.T) {
	store, _ := newTestHistoryStore(t)
	ctx := context.Background()

	history := []ChatMessage{
		{Role: ChatRoleUser, Content: "Olá"},
		{Role: ChatRoleAssistant, Content: "Oi! Como posso ajudar?"},
	}
	require.NoError(t, store.Save(ctx, "conv-1", history))

	loaded, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, history, loaded)
}

func TestHistoryLoadMissingIsNil(t *testing.T) {
	store, _ := newTestHistoryStore(t)

	loaded, err := store.Load(context.Background(), "conv-none")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestHistorySaveTrimsOldTurns(t *testing.T) {
	store, _ := newTestHistoryStore(t)
	ctx := context.Background()

	var history []ChatMessage
	for i := 0; i < maxHistoryTurns+10; i++ {
		history = append(history, ChatMessage{Role: ChatRoleUser, Content: fmt.Sprintf("turn %d", i)})
	}
	require.NoError(t, store.Save(ctx, "conv-1", history))

	loaded, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, loaded, maxHistoryTurns)
	assert.Equal(t, "turn 10", loaded[0].Content)
}

func TestHistoryExpires(t *testing.T) {
	store, mr := newTestHistoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "conv-1", []ChatMessage{{Role: ChatRoleUser, Content: "Olá"}}))
	mr.FastForward(2 * time.Hour)

	loaded, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
