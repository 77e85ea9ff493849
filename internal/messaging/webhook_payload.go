package messaging

import (
	"fmt"
	"net/http"
)

// InboundMessage is the parsed Twilio WhatsApp callback. Field names follow
// Twilio's form keys.
type InboundMessage struct {
	From        string
	To          string
	Body        string
	MessageSid  string
	AccountSid  string
	ProfileName string
	WaID        string
}

// Validate enforces the required-field contract. ProfileName and WaId are
// optional; everything else must be present.
func (m *InboundMessage) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("invalid data: missing %s", field)
	}
	switch {
	case m.From == "":
		return missing("From")
	case m.To == "":
		return missing("To")
	case m.Body == "":
		return missing("Body")
	case m.MessageSid == "":
		return missing("MessageSid")
	case m.AccountSid == "":
		return missing("AccountSid")
	}
	return nil
}

// DisplayName picks the contact name for new conversations and leads:
// profile name, else the WhatsApp contact id, else the raw sender address.
func (m *InboundMessage) DisplayName() string {
	if m.ProfileName != "" {
		return m.ProfileName
	}
	if m.WaID != "" {
		return m.WaID
	}
	return m.From
}

// maxWebhookMemory bounds multipart parsing; Twilio payloads are tiny.
const maxWebhookMemory = 1 << 20

// ParseInbound reads the webhook body as multipart form data, falling back
// to URL-encoded when the content isn't multipart.
func ParseInbound(r *http.Request) (*InboundMessage, error) {
	if err := r.ParseMultipartForm(maxWebhookMemory); err != nil {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("messaging: parse webhook body: %w", err)
		}
	}
	return &InboundMessage{
		From:        r.FormValue("From"),
		To:          r.FormValue("To"),
		Body:        r.FormValue("Body"),
		MessageSid:  r.FormValue("MessageSid"),
		AccountSid:  r.FormValue("AccountSid"),
		ProfileName: r.FormValue("ProfileName"),
		WaID:        r.FormValue("WaId"),
	}, nil
}
