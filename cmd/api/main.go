package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/zapleads/zapleads/internal/accounts"
	"github.com/zapleads/zapleads/internal/ai"
	"github.com/zapleads/zapleads/internal/api/router"
	appconfig "github.com/zapleads/zapleads/internal/config"
	"github.com/zapleads/zapleads/internal/conversations"
	"github.com/zapleads/zapleads/internal/dashboard"
	"github.com/zapleads/zapleads/internal/events"
	"github.com/zapleads/zapleads/internal/leads"
	"github.com/zapleads/zapleads/internal/messaging"
	observemetrics "github.com/zapleads/zapleads/internal/observability/metrics"
	"github.com/zapleads/zapleads/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting zapleads API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.SessionJWTSecret == "" {
		logger.Error("SESSION_JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = redisClient.Close() }()

	registry := prometheus.NewRegistry()
	messagingMetrics := observemetrics.NewMessagingMetrics(registry)

	usersRepo := accounts.NewPostgresRepository(pool)
	leadsRepo := leads.NewPostgresRepository(pool)
	conversationStore := conversations.NewStore(pool)
	processedStore := events.NewProcessedStore(pool)
	dashboardStore := dashboard.NewStore(pool)

	sessions := accounts.NewSessionIssuer(cfg.SessionJWTSecret, cfg.SessionTTL)
	sender := messaging.NewTwilioSender(cfg.TwilioBaseURL, logger)
	completer := ai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.CompletionWait, logger)
	history := ai.NewHistoryStore(redisClient, cfg.HistoryTTL)

	webhookHandler := messaging.NewWebhookHandler(messaging.WebhookConfig{
		Tenants:       usersRepo,
		Conversations: conversationStore,
		Leads:         leadsRepo,
		Processed:     processedStore,
		Completer:     completer,
		History:       history,
		Sender:        sender,
		Metrics:       messagingMetrics,
		Logger:        logger,
	})

	routerCfg := &router.Config{
		Logger:               logger,
		Sessions:             sessions,
		AccountsHandler:      accounts.NewHandler(usersRepo, sessions, logger),
		LeadsHandler:         leads.NewHandler(leadsRepo, logger),
		ConversationsHandler: conversations.NewHandler(conversationStore, logger),
		WebhookHandler:       webhookHandler,
		SendHandler:          messaging.NewSendHandler(usersRepo, conversationStore, sender, messagingMetrics, logger),
		DashboardHandler:     dashboard.NewHandler(dashboardStore, logger),
		MetricsHandler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
