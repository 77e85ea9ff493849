package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zapleads/zapleads/internal/tenancy"
	"github.com/zapleads/zapleads/pkg/logging"
)

// Handler handles HTTP requests for leads
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

type validationError struct {
	Message string  `json:"message"`
	Issues  []Issue `json:"issues"`
}

// List handles GET /api/leads.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	out, err := h.repo.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err, "user_id", userID)
		http.Error(w, "failed to list leads", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []*Lead{}
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/leads.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if issues := input.Validate(); len(issues) > 0 {
		writeJSON(w, http.StatusBadRequest, validationError{Message: "invalid data", Issues: issues})
		return
	}

	lead, err := h.repo.Create(r.Context(), userID, input.Params())
	if err != nil {
		if errors.Is(err, ErrDuplicatePhone) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create lead", "error", err, "user_id", userID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("lead created", "lead_id", lead.ID, "user_id", userID)
	writeJSON(w, http.StatusCreated, lead)
}

// Update handles PATCH /api/leads/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	leadID := chi.URLParam(r, "id")

	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if patch.Empty() {
		http.Error(w, "no fields to update", http.StatusBadRequest)
		return
	}
	if issues := patch.Validate(); len(issues) > 0 {
		writeJSON(w, http.StatusBadRequest, validationError{Message: "invalid data", Issues: issues})
		return
	}

	lead, err := h.repo.ApplyPatch(r.Context(), userID, leadID, patch)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update lead", "error", err, "lead_id", leadID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Delete handles DELETE /api/leads/{id}. Deleting a lead also deletes its
// linked conversation and every message in it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	leadID := chi.URLParam(r, "id")

	if err := h.repo.Delete(r.Context(), userID, leadID); err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete lead", "error", err, "lead_id", leadID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("lead deleted", "lead_id", leadID, "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "lead deleted"})
}

// Import handles POST /api/leads/import. Rows are processed in order; a bad
// row is recorded and skipped, never fatal to the batch.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var rows []ImportRow
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(rows) == 0 {
		http.Error(w, "at least one row is required", http.StatusBadRequest)
		return
	}

	result := ImportResult{Errors: []ImportError{}}
	for i := range rows {
		display := i + 1
		if issues := rows[i].Validate(); len(issues) > 0 {
			result.Errors = append(result.Errors, ImportError{
				Row:     display,
				Message: fmt.Sprintf("%s: %s", issues[0].Path, issues[0].Message),
			})
			continue
		}
		if _, err := h.repo.Create(r.Context(), userID, rows[i].Params()); err != nil {
			msg := "insert failed"
			if errors.Is(err, ErrDuplicatePhone) {
				msg = ErrDuplicatePhone.Error()
			} else {
				h.logger.Error("import row failed", "error", err, "row", display, "user_id", userID)
			}
			result.Errors = append(result.Errors, ImportError{Row: display, Message: msg})
			continue
		}
		result.Imported++
	}

	h.logger.Info("leads imported",
		"user_id", userID,
		"imported", result.Imported,
		"failed", len(result.Errors),
	)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
