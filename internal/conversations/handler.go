package conversations

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zapleads/zapleads/internal/tenancy"
	"github.com/zapleads/zapleads/pkg/logging"
)

// Handler serves the conversation endpoints.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a conversations handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if store == nil {
		panic("conversations: store cannot be nil")
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /api/conversations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	out, err := h.store.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err, "user_id", userID)
		http.Error(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []*Conversation{}
	}
	writeJSON(w, http.StatusOK, out)
}

type conversationDetail struct {
	*Conversation
	Messages []*Message `json:"messages"`
}

// Get handles GET /api/conversations/{id}, returning the conversation with
// its messages in ascending order.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conversationID := chi.URLParam(r, "id")

	conv, err := h.store.GetByID(r.Context(), userID, conversationID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load conversation", "error", err, "conversation_id", conversationID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	messages, err := h.store.ListMessages(r.Context(), conv.ID)
	if err != nil {
		h.logger.Error("failed to load messages", "error", err, "conversation_id", conversationID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []*Message{}
	}
	writeJSON(w, http.StatusOK, conversationDetail{Conversation: conv, Messages: messages})
}

type statusPatch struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /api/conversations/{id}. Status is the only
// mutable field.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conversationID := chi.URLParam(r, "id")

	var patch statusPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !ValidStatus(patch.Status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	conv, err := h.store.UpdateStatus(r.Context(), userID, conversationID, patch.Status)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update conversation", "error", err, "conversation_id", conversationID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
