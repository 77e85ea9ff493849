package conversations

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conversationRow(id, userID, phone string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "user_id", "phone", "name", "status",
		"last_message", "last_message_at", "created_at", "updated_at",
	}).AddRow(id, userID, phone, "Maria", StatusActive, nil, nil, now, now)
}

func TestFindOrCreateUpserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO conversations").
		WithArgs(pgxmock.AnyArg(), "user-1", "+5511999999999", "Maria", StatusActive).
		WillReturnRows(conversationRow("conv-1", "user-1", "+5511999999999"))

	store := &Store{pool: mock}
	conv, err := store.FindOrCreate(context.Background(), nil, "user-1", "+5511999999999", "Maria")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", conv.ID)
	assert.Equal(t, StatusActive, conv.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMessageDefaultsStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), "conv-1", "user-1", "Olá", DirectionInbound, "SM123", "received").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "conversation_id", "user_id", "content", "direction",
			"message_type", "twilio_sid", "status", "created_at",
		}).AddRow("msg-1", "conv-1", "user-1", "Olá", DirectionInbound, "text", ptr("SM123"), "received", now))

	store := &Store{pool: mock}
	msg, err := store.InsertMessage(context.Background(), nil, MessageRecord{
		ConversationID: "conv-1",
		UserID:         "user-1",
		Content:        "Olá",
		Direction:      DirectionInbound,
		TwilioSID:      "SM123",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, DirectionInbound, msg.Direction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchLastMessage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE conversations").
		WithArgs("conv-1", "Olá").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := &Store{pool: mock}
	require.NoError(t, store.TouchLastMessage(context.Background(), nil, "conv-1", "Olá"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("UPDATE conversations").
		WithArgs("conv-missing", "user-1", StatusClosed).
		WillReturnError(pgx.ErrNoRows)

	store := &Store{pool: mock}
	_, err = store.UpdateStatus(context.Background(), "user-1", "conv-missing", StatusClosed)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrdersByActivity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "user_id", "phone", "name", "status",
		"last_message", "last_message_at", "created_at", "updated_at",
	}).
		AddRow("conv-2", "user-1", "+5511888888888", "João", StatusActive, ptr("Oi"), &now, now, now).
		AddRow("conv-1", "user-1", "+5511999999999", "Maria", StatusActive, nil, nil, now, now)

	mock.ExpectQuery("SELECT (.+) FROM conversations").
		WithArgs("user-1").
		WillReturnRows(rows)

	store := &Store{pool: mock}
	out, err := store.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "conv-2", out[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func ptr(s string) *string { return &s }

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusActive, StatusClosed, StatusArchived} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("open"))
	assert.False(t, ValidStatus(""))
}
