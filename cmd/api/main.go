// Package main is the entry point for the support platform API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/internal/config"
	"github.com/elicheradice/support-platform/internal/handler"
	"github.com/elicheradice/support-platform/internal/llm"
	"github.com/elicheradice/support-platform/internal/middleware"
	natsclient "github.com/elicheradice/support-platform/internal/nats"
	"github.com/elicheradice/support-platform/internal/notify"
	"github.com/elicheradice/support-platform/internal/relay"
	"github.com/elicheradice/support-platform/internal/responder"
	"github.com/elicheradice/support-platform/internal/scheduler"
	"github.com/elicheradice/support-platform/internal/service"
	"github.com/elicheradice/support-platform/internal/settings"
	"github.com/elicheradice/support-platform/internal/store"
	"github.com/elicheradice/support-platform/pkg/logger"
	"github.com/elicheradice/support-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "support-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// Open the database
	st, err := store.Open(store.Config{
		Path:     cfg.DatabasePath,
		PoolSize: cfg.DatabasePoolSize,
		Logger:   log,
	})
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	// Load the auto-response setting
	aiSettings, err := settings.Open(cfg.AISettingPath, log)
	if err != nil {
		log.Error("failed to load settings", zap.Error(err))
		os.Exit(1)
	}

	// Connect the broadcast transport. Without NATS the relay runs on
	// an in-process transport, which is fine for a single instance.
	var transport relay.Transport
	var natsClient *natsclient.Client
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()
		transport = natsclient.NewTransport(natsClient)
	} else {
		log.Info("NATS disabled, using in-process transport")
		transport = relay.NewLocalTransport()
	}

	// Initialize the LLM client. The responder model follows the
	// selected provider.
	var llmClient llm.Client
	var llmModel string
	switch {
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey)
		llmModel = cfg.OpenAIModel
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
		llmModel = cfg.AnthropicModel
	default:
		log.Warn("no LLM API key configured, auto-response disabled")
	}
	if err != nil {
		log.Warn("failed to create LLM client, auto-response disabled", zap.Error(err))
		llmClient = nil
	}

	// Initialize services
	conversationSvc := service.NewConversationService(st, log)
	messageSvc := service.NewMessageService(st, log)

	// Start the relay
	hub := relay.NewHub(transport, log)
	if err := hub.Start(); err != nil {
		log.Error("failed to start relay", zap.Error(err))
		os.Exit(1)
	}
	defer hub.Stop()

	var autoResponder relay.AutoResponder
	if llmClient != nil {
		autoResponder = responder.New(llmClient, responder.Config{
			Model:           llmModel,
			TypingDelay:     cfg.ResponderDelay,
			CompletionLimit: cfg.CompletionLimit,
		}, conversationSvc, messageSvc, hub, log)
	}

	rly := relay.NewRelay(ctx, hub, conversationSvc, messageSvc, aiSettings, autoResponder, cfg.FrontendURL, log)

	// Start the expiry sweep
	expiry := scheduler.NewExpiry(
		conversationSvc,
		cfg.ExpiryGraceDelay,
		cfg.ExpiryInterval,
		time.Duration(cfg.ExpiryAfterHours)*time.Hour,
		log,
	)
	go expiry.Run(ctx)

	// Initialize the mailer
	mailer := notify.NewMailer(notify.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		AdminEmail:  cfg.AdminEmail,
		Password:    cfg.AdminPassword,
		FrontendURL: cfg.FrontendURL,
	}, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	conversationHandler := handler.NewConversationHandler(conversationSvc, messageSvc, hub, log)
	messageHandler := handler.NewMessageHandler(conversationSvc, messageSvc, log)
	settingsHandler := handler.NewSettingsHandler(aiSettings, log)
	notificationHandler := handler.NewNotificationHandler(mailer, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Websocket endpoint, outside the rate limiter
	r.Get("/ws", rly.ServeWS)

	// REST API
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Get("/all", conversationHandler.ListAll)
			r.Post("/", conversationHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Patch("/status", conversationHandler.UpdateStatus)
				r.Patch("/priority", conversationHandler.UpdatePriority)
				r.Patch("/customer-info", conversationHandler.UpdateCustomerInfo)
			})
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", messageHandler.Create)
			r.Get("/", messageHandler.List)
			r.Patch("/{id}/read", messageHandler.MarkRead)
		})

		r.Get("/ai-setting", settingsHandler.Get)
		r.Post("/ai-setting", settingsHandler.Set)

		r.Post("/notifications/new-customer", notificationHandler.NewCustomer)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Stop background work, then drain in-flight requests.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
