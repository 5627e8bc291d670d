// Package main is the entry point for the support agent daemon.
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

	"github.com/rasil-ai/support-agent-platform/internal/agent"
	"github.com/rasil-ai/support-agent-platform/internal/config"
	"github.com/rasil-ai/support-agent-platform/internal/handler"
	"github.com/rasil-ai/support-agent-platform/internal/llm"
	"github.com/rasil-ai/support-agent-platform/internal/middleware"
	natsclient "github.com/rasil-ai/support-agent-platform/internal/nats"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
	"github.com/rasil-ai/support-agent-platform/pkg/tracing"
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

	log.Info("starting agent daemon")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "support-agent-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
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

	// Ensure JetStream stream exists
	publisher := natsclient.NewPublisher(natsClient)
	if err := publisher.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Open the durable store
	db, err := store.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		log.Error("failed to open sqlite store", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize LLM client; a nil client routes every message to the
	// not-configured fallback path.
	var llmClient llm.Client
	switch {
	case cfg.DefaultLLM == "anthropic" && cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	}
	if err != nil {
		log.Warn("failed to create LLM client, automated replies disabled", zap.Error(err))
		llmClient = nil
	}

	// Assemble the engine
	handoff := agent.NewHandoffController(db, publisher, log)
	knowledge := agent.NewKnowledgeRetriever(db, cfg.KnowledgeLimit, cfg.KnowledgeBudget, log)
	prompt := agent.NewPromptBuilder(knowledge)
	tools := agent.NewToolExecutor(db, handoff, log)
	quality := agent.NewQualityAnalyzer()
	orchestrator := agent.NewOrchestrator(llmClient, prompt, tools, quality, handoff, db, cfg.HistoryTurns, log)
	dispatcher := agent.NewDispatcher(db, db, orchestrator, publisher, cfg.AgentEnabled, log)

	// Start the inbound consumer
	consumer := natsclient.NewConsumer(natsClient, db, dispatcher, log)
	if err := consumer.Start(ctx); err != nil {
		log.Error("failed to start inbound consumer", zap.Error(err))
		os.Exit(1)
	}
	defer consumer.Stop()

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	conversationHandler := handler.NewConversationHandler(db, db, handoff, log)
	inboundHandler := handler.NewInboundHandler(db, dispatcher, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations/{id}", func(r chi.Router) {
			r.Get("/", conversationHandler.Get)
			r.With(middleware.RequireScope("conversations:handoff")).
				Post("/handoff", conversationHandler.Handoff)
		})

		r.Post("/messages/inbound", inboundHandler.Post)
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

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
