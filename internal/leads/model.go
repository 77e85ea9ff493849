package leads

import "time"

// Lead statuses. These literal strings are part of the API contract; the
// dashboard filters and the import path both depend on them.
const (
	StatusNovo           = "novo"
	StatusQualificado    = "qualificado"
	StatusNaoInteressado = "nao_interessado"
	StatusFechado        = "fechado"
)

// Lead sources.
const (
	SourceManual   = "manual"
	SourceWhatsApp = "whatsapp"
)

// ValidStatus reports whether s is one of the four lead statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusNovo, StatusQualificado, StatusNaoInteressado, StatusFechado:
		return true
	}
	return false
}

// Lead is a sales-pipeline record, optionally linked to the conversation it
// originated from. The link is nullable: a manually created lead has no
// conversation.
type Lead struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ConversationID *string   `json:"conversationId"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Email          *string   `json:"email"`
	Status         string    `json:"status"`
	Source         string    `json:"source"`
	Notes          *string   `json:"notes"`
	Value          *float64  `json:"value"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CreateParams carries the fields for a new lead after validation.
type CreateParams struct {
	Name           string
	Phone          string
	Email          *string
	Status         string
	Source         string
	Notes          *string
	Value          *float64
	ConversationID *string
}

// ImportResult summarizes a bulk import: rows inserted plus per-row errors.
// Row-level failures never abort the batch.
type ImportResult struct {
	Imported int           `json:"imported"`
	Errors   []ImportError `json:"errors"`
}

// ImportError records a failed row by its 1-based display index.
type ImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}
