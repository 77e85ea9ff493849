package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/zapleads/zapleads/internal/tenancy"
	"github.com/zapleads/zapleads/pkg/logging"
)

// Handler serves GET /api/dashboard.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if store == nil {
		panic("dashboard: store cannot be nil")
	}
	return &Handler{store: store, logger: logger}
}

// Snapshot handles GET /api/dashboard.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := h.store.Snapshot(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to build dashboard stats", "error", err, "user_id", userID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}
