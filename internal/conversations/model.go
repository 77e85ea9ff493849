package conversations

import "time"

// Conversation statuses. Literal strings are part of the API contract.
const (
	StatusActive   = "active"
	StatusClosed   = "closed"
	StatusArchived = "archived"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// ValidStatus reports whether s is a known conversation status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusClosed, StatusArchived:
		return true
	}
	return false
}

// Conversation is the thread of messages with one external phone contact,
// scoped to a tenant. LastMessage/LastMessageAt are denormalized from the
// most recent message for cheap list rendering.
type Conversation struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Phone         string     `json:"phone"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	LastMessage   *string    `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Message is one entry in a conversation, append-only.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Content        string    `json:"content"`
	Direction      string    `json:"direction"`
	MessageType    string    `json:"messageType"`
	TwilioSID      *string   `json:"twilioSid"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MessageRecord carries the fields for a new message row.
type MessageRecord struct {
	ConversationID string
	UserID         string
	Content        string
	Direction      string
	TwilioSID      string
	Status         string
}
