package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zapleads/zapleads/internal/accounts"
	"github.com/zapleads/zapleads/internal/ai"
	"github.com/zapleads/zapleads/internal/conversations"
	"github.com/zapleads/zapleads/internal/leads"
	observemetrics "github.com/zapleads/zapleads/internal/observability/metrics"
	"github.com/zapleads/zapleads/pkg/logging"
)

var webhookTracer = otel.Tracer("zapleads.internal.messaging.webhook")

const webhookProvider = "twilio"

type tenantResolver interface {
	GetByAccountSID(ctx context.Context, accountSID string) (*accounts.User, error)
}

type processedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

type historyStore interface {
	Load(ctx context.Context, conversationID string) ([]ai.ChatMessage, error)
	Save(ctx context.Context, conversationID string, history []ai.ChatMessage) error
}

// WebhookHandler turns one inbound Twilio WhatsApp callback into durable
// conversation/lead/message state and, when the tenant has AI configured,
// a best-effort auto-reply.
type WebhookHandler struct {
	tenants       tenantResolver
	conversations *conversations.Store
	leads         leads.Repository
	processed     processedTracker
	completer     ai.Completer
	history       historyStore
	sender        Sender
	metrics       *observemetrics.MessagingMetrics
	logger        *logging.Logger
}

// WebhookConfig wires the pipeline's collaborators.
type WebhookConfig struct {
	Tenants       tenantResolver
	Conversations *conversations.Store
	Leads         leads.Repository
	Processed     processedTracker
	Completer     ai.Completer
	History       historyStore
	Sender        Sender
	Metrics       *observemetrics.MessagingMetrics
	Logger        *logging.Logger
}

// NewWebhookHandler creates the ingestion handler.
func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Tenants == nil || cfg.Conversations == nil || cfg.Leads == nil {
		panic("messaging: tenants, conversations and leads are required")
	}
	return &WebhookHandler{
		tenants:       cfg.Tenants,
		conversations: cfg.Conversations,
		leads:         cfg.Leads,
		processed:     cfg.Processed,
		completer:     cfg.Completer,
		history:       cfg.History,
		sender:        cfg.Sender,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
	}
}

type webhookResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	LeadID         string `json:"leadId"`
}

// HandleInbound processes POST /webhook/whatsapp.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := webhookTracer.Start(r.Context(), "messaging.webhook.inbound")
	defer span.End()

	inbound, err := ParseInbound(r)
	if err != nil {
		h.metrics.ObserveInbound("parse_error")
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := inbound.Validate(); err != nil {
		h.metrics.ObserveInbound("invalid")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("zapleads.message_sid", inbound.MessageSid))

	// Provider retries redeliver the same MessageSid; answer 200 without
	// writing anything twice.
	if h.processed != nil {
		if seen, err := h.processed.AlreadyProcessed(ctx, webhookProvider, inbound.MessageSid); err != nil {
			h.logger.Error("processed lookup failed", "error", err)
			h.metrics.ObserveInbound("error")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		} else if seen {
			h.metrics.ObserveInbound("duplicate")
			writeJSON(w, http.StatusOK, webhookResponse{Message: "already processed"})
			return
		}
	}

	user, err := h.tenants.GetByAccountSID(ctx, inbound.AccountSid)
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			h.metrics.ObserveInbound("unmapped")
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		h.logger.Error("tenant lookup failed", "error", err)
		h.metrics.ObserveInbound("error")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	phone := StripWhatsApp(inbound.From)
	displayName := inbound.DisplayName()

	conv, msg, err := h.persistInbound(ctx, user.ID, phone, displayName, inbound)
	if err != nil {
		h.logger.Error("failed to persist inbound message", "error", err, "user_id", user.ID)
		h.metrics.ObserveInbound("error")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	lead, err := h.resolveLead(ctx, user.ID, phone, displayName, conv.ID, inbound.ProfileName)
	if err != nil {
		h.logger.Error("failed to resolve lead", "error", err, "user_id", user.ID)
		h.metrics.ObserveInbound("error")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Best-effort: a failed auto-reply must never fail the webhook, the
	// inbound message is already durable.
	if user.HasAutoReply() {
		h.autoReply(ctx, user, conv, inbound.Body)
	}

	if h.processed != nil {
		if _, err := h.processed.MarkProcessed(ctx, webhookProvider, inbound.MessageSid); err != nil {
			h.logger.Error("failed to mark webhook processed", "error", err, "message_sid", inbound.MessageSid)
		}
	}

	h.metrics.ObserveInbound("ok")
	h.metrics.ObserveWebhookLatency(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, webhookResponse{
		Message:        "received",
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		LeadID:         lead.ID,
	})
}

// persistInbound upserts the conversation, appends the inbound message and
// refreshes the denormalized summary in a single transaction.
func (h *WebhookHandler) persistInbound(ctx context.Context, userID, phone, displayName string, inbound *InboundMessage) (*conversations.Conversation, *conversations.Message, error) {
	tx, err := h.conversations.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	conv, err := h.conversations.FindOrCreate(ctx, tx, userID, phone, displayName)
	if err != nil {
		return nil, nil, err
	}
	msg, err := h.conversations.InsertMessage(ctx, tx, conversations.MessageRecord{
		ConversationID: conv.ID,
		UserID:         userID,
		Content:        inbound.Body,
		Direction:      conversations.DirectionInbound,
		TwilioSID:      inbound.MessageSid,
		Status:         "received",
	})
	if err != nil {
		return nil, nil, err
	}
	if err := h.conversations.TouchLastMessage(ctx, tx, conv.ID, inbound.Body); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return conv, msg, nil
}

// resolveLead finds or creates the lead for the sender and keeps its name in
// sync with the profile name the provider supplied.
func (h *WebhookHandler) resolveLead(ctx context.Context, userID, phone, displayName, conversationID, profileName string) (*leads.Lead, error) {
	lead, created, err := h.leads.FindOrCreateByPhone(ctx, userID, phone, displayName, &conversationID)
	if err != nil {
		return nil, err
	}
	if !created && profileName != "" && lead.Name != profileName {
		if err := h.leads.UpdateName(ctx, userID, lead.ID, profileName); err != nil {
			// Name refresh is cosmetic; the message is already stored.
			h.logger.Warn("failed to refresh lead name", "error", err, "lead_id", lead.ID)
		} else {
			lead.Name = profileName
		}
	}
	return lead, nil
}

// autoReply generates and delivers the AI response. Every failure is logged
// and swallowed.
func (h *WebhookHandler) autoReply(ctx context.Context, user *accounts.User, conv *conversations.Conversation, inboundText string) {
	if h.completer == nil || h.sender == nil {
		return
	}
	outcome := "error"
	defer func() { h.metrics.ObserveAutoReply(outcome) }()

	var history []ai.ChatMessage
	if h.history != nil {
		loaded, err := h.history.Load(ctx, conv.ID)
		if err != nil {
			h.logger.Warn("failed to load conversation history", "error", err, "conversation_id", conv.ID)
		} else {
			history = loaded
		}
	}
	turns := append(history, ai.ChatMessage{Role: ai.ChatRoleUser, Content: inboundText})

	reply, err := h.completer.Complete(ctx, ai.CompletionRequest{
		APIKey:   user.OpenAIAPIKey,
		System:   user.AIPrompt,
		Messages: turns,
	})
	if err != nil {
		h.logger.Error("auto-reply completion failed", "error", err, "conversation_id", conv.ID)
		return
	}

	sid := ""
	if user.HasMessagingCredentials() {
		sid, err = h.sender.Send(ctx, SendRequest{
			AccountSID: user.TwilioAccountSID,
			AuthToken:  user.TwilioAuthToken,
			From:       user.TwilioPhoneNumber,
			To:         conv.Phone,
			Body:       reply,
		})
		if err != nil {
			h.logger.Error("auto-reply send failed", "error", err, "conversation_id", conv.ID)
			h.metrics.ObserveOutbound("failed")
			return
		}
		h.metrics.ObserveOutbound("sent")
	} else {
		h.logger.Warn("auto-reply skipped delivery: messaging credentials missing", "user_id", user.ID)
	}

	tx, err := h.conversations.Begin(ctx)
	if err != nil {
		h.logger.Error("auto-reply persist failed", "error", err, "conversation_id", conv.ID)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := h.conversations.InsertMessage(ctx, tx, conversations.MessageRecord{
		ConversationID: conv.ID,
		UserID:         user.ID,
		Content:        reply,
		Direction:      conversations.DirectionOutbound,
		TwilioSID:      sid,
		Status:         "sent",
	}); err != nil {
		h.logger.Error("auto-reply persist failed", "error", err, "conversation_id", conv.ID)
		return
	}
	if err := h.conversations.TouchLastMessage(ctx, tx, conv.ID, reply); err != nil {
		h.logger.Error("auto-reply persist failed", "error", err, "conversation_id", conv.ID)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("auto-reply persist failed", "error", err, "conversation_id", conv.ID)
		return
	}

	if h.history != nil {
		turns = append(turns, ai.ChatMessage{Role: ai.ChatRoleAssistant, Content: reply})
		if err := h.history.Save(ctx, conv.ID, turns); err != nil {
			h.logger.Warn("failed to save conversation history", "error", err, "conversation_id", conv.ID)
		}
	}
	outcome = "ok"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
