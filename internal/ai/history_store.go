package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultHistoryTTL = 24 * time.Hour

// maxHistoryTurns caps the context window we feed back into completions.
const maxHistoryTurns = 20

// HistoryStore keeps recent per-conversation chat history in Redis so the
// auto-reply has context beyond the latest inbound message. History is a
// cache: losing it degrades reply quality, never correctness.
type HistoryStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewHistoryStore builds a history store; ttl falls back to 24h.
func NewHistoryStore(client *redis.Client, ttl time.Duration) *HistoryStore {
	if client == nil {
		panic("ai: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultHistoryTTL
	}
	return &HistoryStore{redis: client, ttl: ttl}
}

// Load returns the stored history for a conversation, or nil when absent.
func (s *HistoryStore) Load(ctx context.Context, conversationID string) ([]ChatMessage, error) {
	data, err := s.redis.Get(ctx, historyKey(conversationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("ai: load history: %w", err)
	}
	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("ai: decode history: %w", err)
	}
	return history, nil
}

// Save persists the history, trimmed to the most recent turns.
func (s *HistoryStore) Save(ctx context.Context, conversationID string, history []ChatMessage) error {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("ai: marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, historyKey(conversationID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("ai: persist history: %w", err)
	}
	return nil
}

func historyKey(conversationID string) string {
	return fmt.Sprintf("conversation:history:%s", conversationID)
}
