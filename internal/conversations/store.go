package conversations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConversationNotFound is returned for missing or unowned conversations.
	ErrConversationNotFound = errors.New("conversation not found")
)

// Querier is the subset of pgx executed by store methods. Passing a pgx.Tx
// keeps a multi-step write inside one transaction; passing nil uses the pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxPool is the pool surface the store needs.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists conversations and their messages in Postgres.
type Store struct {
	pool PgxPool
}

// NewStore builds a store over a pgx pool.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("conversations: pgx pool required")
	}
	return &Store{pool: pool}
}

// Begin opens a transaction for callers composing multi-step writes.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

const conversationColumns = `id, user_id, phone, name, status, last_message, last_message_at, created_at, updated_at`

// List returns the tenant's conversations, most recently active first.
func (s *Store) List(ctx context.Context, userID string) ([]*Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE user_id = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("conversations: list: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("conversations: scan: %w", err)
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// GetByID fetches a conversation scoped to the tenant.
func (s *Store) GetByID(ctx context.Context, userID, id string) (*Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1 AND user_id = $2`
	conv, err := scanConversation(s.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversations: select: %w", err)
	}
	return conv, nil
}

// FindOrCreate resolves the conversation for (tenant, phone), inserting an
// active one with the given display name when none exists. The upsert rides
// the (user_id, phone) unique constraint, so concurrent inbound messages for
// the same sender converge on one row instead of racing a check-then-insert.
func (s *Store) FindOrCreate(ctx context.Context, q Querier, userID, phone, name string) (*Conversation, error) {
	if q == nil {
		q = s.pool
	}
	query := `
		INSERT INTO conversations (id, user_id, phone, name, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, phone) DO UPDATE SET updated_at = now()
		RETURNING ` + conversationColumns
	conv, err := scanConversation(q.QueryRow(ctx, query, uuid.New(), userID, phone, name, StatusActive))
	if err != nil {
		return nil, fmt.Errorf("conversations: find-or-create: %w", err)
	}
	return conv, nil
}

// InsertMessage appends a message row and returns it.
func (s *Store) InsertMessage(ctx context.Context, q Querier, rec MessageRecord) (*Message, error) {
	if q == nil {
		q = s.pool
	}
	if rec.Status == "" {
		rec.Status = "received"
	}
	query := `
		INSERT INTO messages (id, conversation_id, user_id, content, direction, message_type, twilio_sid, status)
		VALUES ($1, $2, $3, $4, $5, 'text', NULLIF($6, ''), $7)
		RETURNING id, conversation_id, user_id, content, direction, message_type, twilio_sid, status, created_at
	`
	row := q.QueryRow(ctx, query,
		uuid.New(), rec.ConversationID, rec.UserID, rec.Content, rec.Direction, rec.TwilioSID, rec.Status)
	var msg Message
	if err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.UserID,
		&msg.Content,
		&msg.Direction,
		&msg.MessageType,
		&msg.TwilioSID,
		&msg.Status,
		&msg.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("conversations: insert message: %w", err)
	}
	return &msg, nil
}

// TouchLastMessage refreshes the denormalized last-message fields. Run in the
// same transaction as InsertMessage so the summary can never drift from the
// message log.
func (s *Store) TouchLastMessage(ctx context.Context, q Querier, conversationID, content string) error {
	if q == nil {
		q = s.pool
	}
	query := `
		UPDATE conversations
		SET last_message = $2, last_message_at = now(), updated_at = now()
		WHERE id = $1
	`
	if _, err := q.Exec(ctx, query, conversationID, content); err != nil {
		return fmt.Errorf("conversations: touch last message: %w", err)
	}
	return nil
}

// UpdateStatus changes the lifecycle status of a tenant's conversation.
func (s *Store) UpdateStatus(ctx context.Context, userID, id, status string) (*Conversation, error) {
	query := `
		UPDATE conversations
		SET status = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + conversationColumns
	conv, err := scanConversation(s.pool.QueryRow(ctx, query, id, userID, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversations: update status: %w", err)
	}
	return conv, nil
}

// ListMessages returns a conversation's messages oldest first, the order the
// thread view renders them in.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	query := `
		SELECT id, conversation_id, user_id, content, direction, message_type, twilio_sid, status, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversations: list messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.UserID,
			&msg.Content,
			&msg.Direction,
			&msg.MessageType,
			&msg.TwilioSID,
			&msg.Status,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("conversations: scan message: %w", err)
		}
		out = append(out, &msg)
	}
	return out, rows.Err()
}

func scanConversation(row pgx.Row) (*Conversation, error) {
	var conv Conversation
	if err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Phone,
		&conv.Name,
		&conv.Status,
		&conv.LastMessage,
		&conv.LastMessageAt,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &conv, nil
}
