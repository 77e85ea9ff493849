package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zapleads/zapleads/internal/accounts"
	"github.com/zapleads/zapleads/internal/conversations"
	observemetrics "github.com/zapleads/zapleads/internal/observability/metrics"
	"github.com/zapleads/zapleads/internal/tenancy"
	"github.com/zapleads/zapleads/pkg/logging"
)

type userLoader interface {
	GetByID(ctx context.Context, id string) (*accounts.User, error)
}

// SendHandler serves manual outbound sends from the dashboard.
type SendHandler struct {
	users         userLoader
	conversations *conversations.Store
	sender        Sender
	metrics       *observemetrics.MessagingMetrics
	logger        *logging.Logger
}

// NewSendHandler creates the send-message handler.
func NewSendHandler(users userLoader, store *conversations.Store, sender Sender, metrics *observemetrics.MessagingMetrics, logger *logging.Logger) *SendHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if users == nil || store == nil || sender == nil {
		panic("messaging: users, store and sender are required")
	}
	return &SendHandler{
		users:         users,
		conversations: store,
		sender:        sender,
		metrics:       metrics,
		logger:        logger,
	}
}

type sendRequestBody struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

type sendResponse struct {
	MessageSid     string `json:"messageSid"`
	ConversationID string `json:"conversationId"`
}

// Send handles POST /api/messages/send.
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body sendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.PhoneNumber == "" || body.Message == "" {
		http.Error(w, "phoneNumber and message are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load user", "error", err, "user_id", userID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !user.HasMessagingCredentials() {
		http.Error(w, "messaging credentials not configured", http.StatusBadRequest)
		return
	}

	sid, err := h.sender.Send(r.Context(), SendRequest{
		AccountSID: user.TwilioAccountSID,
		AuthToken:  user.TwilioAuthToken,
		From:       user.TwilioPhoneNumber,
		To:         body.PhoneNumber,
		Body:       body.Message,
	})
	if err != nil {
		h.logger.Error("manual send failed", "error", err, "user_id", userID)
		h.metrics.ObserveOutbound("failed")
		http.Error(w, "failed to send message", http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveOutbound("sent")

	phone := StripWhatsApp(body.PhoneNumber)
	tx, err := h.conversations.Begin(r.Context())
	if err != nil {
		h.logger.Error("failed to persist outbound message", "error", err, "user_id", userID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	conv, err := h.conversations.FindOrCreate(r.Context(), tx, userID, phone, phone)
	if err == nil {
		_, err = h.conversations.InsertMessage(r.Context(), tx, conversations.MessageRecord{
			ConversationID: conv.ID,
			UserID:         userID,
			Content:        body.Message,
			Direction:      conversations.DirectionOutbound,
			TwilioSID:      sid,
			Status:         "sent",
		})
	}
	if err == nil {
		err = h.conversations.TouchLastMessage(r.Context(), tx, conv.ID, body.Message)
	}
	if err == nil {
		err = tx.Commit(r.Context())
	}
	if err != nil {
		h.logger.Error("failed to persist outbound message", "error", err, "user_id", userID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sendResponse{MessageSid: sid, ConversationID: conv.ID})
}

// HealthCheck responds to GET /health.
func (h *SendHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
