package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zapleads/zapleads/internal/accounts"
	"github.com/zapleads/zapleads/internal/conversations"
	"github.com/zapleads/zapleads/internal/dashboard"
	httpmiddleware "github.com/zapleads/zapleads/internal/http/middleware"
	"github.com/zapleads/zapleads/internal/leads"
	"github.com/zapleads/zapleads/internal/messaging"
	"github.com/zapleads/zapleads/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger               *logging.Logger
	Sessions             *accounts.SessionIssuer
	AccountsHandler      *accounts.Handler
	LeadsHandler         *leads.Handler
	ConversationsHandler *conversations.Handler
	WebhookHandler       *messaging.WebhookHandler
	SendHandler          *messaging.SendHandler
	DashboardHandler     *dashboard.Handler
	MetricsHandler       http.Handler
	CORSAllowedOrigins   []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: provider webhooks, health, metrics, auth.
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.SendHandler.HealthCheck)
		public.Post("/webhook/whatsapp", cfg.WebhookHandler.HandleInbound)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Route("/api/auth", func(auth chi.Router) {
			auth.Post("/register", cfg.AccountsHandler.Register)
			auth.Post("/login", cfg.AccountsHandler.Login)
		})
	})

	// Tenant-scoped endpoints behind session auth.
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.SessionAuth(cfg.Sessions))

		private.Get("/api/auth/me", cfg.AccountsHandler.Me)

		private.Route("/api/leads", func(r chi.Router) {
			r.Get("/", cfg.LeadsHandler.List)
			r.Post("/", cfg.LeadsHandler.Create)
			r.Post("/import", cfg.LeadsHandler.Import)
			r.Patch("/{id}", cfg.LeadsHandler.Update)
			r.Delete("/{id}", cfg.LeadsHandler.Delete)
		})

		private.Route("/api/conversations", func(r chi.Router) {
			r.Get("/", cfg.ConversationsHandler.List)
			r.Get("/{id}", cfg.ConversationsHandler.Get)
			r.Patch("/{id}", cfg.ConversationsHandler.UpdateStatus)
		})

		private.Post("/api/messages/send", cfg.SendHandler.Send)

		private.Get("/api/settings", cfg.AccountsHandler.GetSettings)
		private.Put("/api/settings", cfg.AccountsHandler.UpdateSettings)

		if cfg.DashboardHandler != nil {
			private.Get("/api/dashboard", cfg.DashboardHandler.Snapshot)
		}
	})

	return r
}
