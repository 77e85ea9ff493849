package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapleads/zapleads/internal/accounts"
	"github.com/zapleads/zapleads/internal/conversations"
	"github.com/zapleads/zapleads/internal/tenancy"
	"github.com/zapleads/zapleads/pkg/logging"
)

type fakeUsers struct {
	user *accounts.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*accounts.User, error) {
	if f.user != nil && f.user.ID == id {
		return f.user, nil
	}
	return nil, accounts.ErrUserNotFound
}

func sendReq(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/messages/send", bytes.NewReader([]byte(body)))
	return req.WithContext(tenancy.WithUserID(req.Context(), "user-1"))
}

func TestSendPersistsOutbound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectPersistedMessage(t, mock, "conv-1", conversations.DirectionOutbound)

	sender := &fakeSender{sid: "SM321"}
	users := &fakeUsers{user: &accounts.User{
		ID:                "user-1",
		TwilioAccountSID:  "AC123",
		TwilioAuthToken:   "tok",
		TwilioPhoneNumber: "whatsapp:+14155238886",
	}}
	handler := NewSendHandler(users, conversations.NewStore(mock), sender, nil, logging.Default())

	w := httptest.NewRecorder()
	handler.Send(w, sendReq(`{"phoneNumber":"whatsapp:+5511999999999","message":"Oi, tudo bem?"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp sendResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "SM321", resp.MessageSid)
	assert.Equal(t, "conv-1", resp.ConversationID)

	require.Len(t, sender.got, 1)
	assert.Equal(t, "whatsapp:+5511999999999", sender.got[0].To)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendRequiresFields(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	handler := NewSendHandler(&fakeUsers{}, conversations.NewStore(mock), &fakeSender{}, nil, logging.Default())

	w := httptest.NewRecorder()
	handler.Send(w, sendReq(`{"phoneNumber":"","message":""}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendRequiresCredentials(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	users := &fakeUsers{user: &accounts.User{ID: "user-1"}}
	handler := NewSendHandler(users, conversations.NewStore(mock), &fakeSender{}, nil, logging.Default())

	w := httptest.NewRecorder()
	handler.Send(w, sendReq(`{"phoneNumber":"+5511999999999","message":"Oi"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "credentials")
}

func TestSendUnauthorized(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	handler := NewSendHandler(&fakeUsers{}, conversations.NewStore(mock), &fakeSender{}, nil, logging.Default())

	w := httptest.NewRecorder()
	handler.Send(w, httptest.NewRequest(http.MethodPost, "/api/messages/send", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
