package accounts

import (
	"strings"
	"time"
)

// User is a tenant account. All conversations, leads and messages are
// partitioned by the owning user.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	CompanyName       string    `json:"companyName"`
	TwilioAccountSID  string    `json:"twilioAccountSid"`
	TwilioAuthToken   string    `json:"twilioAuthToken"`
	TwilioPhoneNumber string    `json:"twilioPhoneNumber"`
	OpenAIAPIKey      string    `json:"openaiApiKey"`
	AIPrompt          string    `json:"aiPrompt"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// HasMessagingCredentials reports whether outbound WhatsApp sends can be made
// on behalf of this tenant.
func (u *User) HasMessagingCredentials() bool {
	return u.TwilioAccountSID != "" && u.TwilioAuthToken != "" && u.TwilioPhoneNumber != ""
}

// HasAutoReply reports whether the AI auto-reply branch is enabled for this
// tenant. Both the API key and the prompt must be configured.
func (u *User) HasAutoReply() bool {
	return strings.TrimSpace(u.OpenAIAPIKey) != "" && strings.TrimSpace(u.AIPrompt) != ""
}

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"companyName"`
}

// Validate checks the registration payload.
func (r *RegisterRequest) Validate() error {
	if !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	if len(r.Password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Settings is the tenant-editable configuration surfaced by the dashboard.
type Settings struct {
	CompanyName       string `json:"companyName"`
	TwilioAccountSID  string `json:"twilioAccountSid"`
	TwilioAuthToken   string `json:"twilioAuthToken"`
	TwilioPhoneNumber string `json:"twilioPhoneNumber"`
	OpenAIAPIKey      string `json:"openaiApiKey"`
	AIPrompt          string `json:"aiPrompt"`
}
