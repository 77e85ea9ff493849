package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zapleads/zapleads/pkg/logging"
)

var twilioSendTracer = otel.Tracer("zapleads.internal.messaging.twilio_send")

// SendRequest is one outbound WhatsApp message. Credentials travel with the
// request because every tenant brings their own Twilio account.
type SendRequest struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
	Body       string
}

// Sender delivers WhatsApp messages.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (string, error)
}

// TwilioSender posts WhatsApp messages using Twilio's REST API.
type TwilioSender struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTwilioSender builds a sender with sane defaults.
func NewTwilioSender(baseURL string, logger *logging.Logger) *TwilioSender {
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ Sender = (*TwilioSender)(nil)

// Send dispatches a single message, retrying transient failures. Returns the
// provider message sid.
func (s *TwilioSender) Send(ctx context.Context, req SendRequest) (string, error) {
	if req.AccountSID == "" || req.AuthToken == "" {
		return "", errors.New("messaging: twilio credentials missing")
	}
	if req.To == "" {
		return "", errors.New("messaging: to required")
	}
	if req.From == "" {
		return "", errors.New("messaging: from required")
	}
	if strings.TrimSpace(req.Body) == "" {
		return "", errors.New("messaging: body required")
	}

	ctx, span := twilioSendTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(attribute.String("zapleads.to", req.To))

	payload := url.Values{}
	payload.Set("To", NormalizeWhatsApp(req.To))
	payload.Set("From", NormalizeWhatsApp(req.From))
	payload.Set("Body", req.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, req.AccountSID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		httpReq.SetBasicAuth(req.AccountSID, req.AuthToken)
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					SID string `json:"sid"`
				}
				_ = json.Unmarshal(body, &parsed)
				s.logger.Info("whatsapp message sent", "to", req.To, "sid", parsed.SID)
				return parsed.SID, nil
			}
			lastErr = fmt.Errorf("twilio send failed: %s", formatTwilioError(resp.StatusCode, body))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				break
			}
		}

		if attempt < 3 {
			sleep := time.Duration(200+rand.Intn(300)) * time.Millisecond
			time.Sleep(sleep)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return "", lastErr
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
