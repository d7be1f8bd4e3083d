// Package main is the entry point for the helpdesk API server.
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

	"github.com/aiqa-platform/helpdesk-backend/internal/analyzer"
	"github.com/aiqa-platform/helpdesk-backend/internal/bitrix"
	"github.com/aiqa-platform/helpdesk-backend/internal/config"
	"github.com/aiqa-platform/helpdesk-backend/internal/handler"
	"github.com/aiqa-platform/helpdesk-backend/internal/middleware"
	natsclient "github.com/aiqa-platform/helpdesk-backend/internal/nats"
	"github.com/aiqa-platform/helpdesk-backend/internal/service"
	"github.com/aiqa-platform/helpdesk-backend/internal/store"
	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
	"github.com/aiqa-platform/helpdesk-backend/pkg/tracing"
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
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "helpdesk-backend", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to PostgreSQL and ensure the schema exists
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Bootstrap(ctx); err != nil {
		log.Error("failed to bootstrap schema", zap.Error(err))
		os.Exit(1)
	}

	// Chat provider client. The endpoint set is a credential: only the
	// redacted form is ever logged.
	providerClient := bitrix.NewClient(bitrix.Options{
		Endpoints: bitrix.Endpoints{
			BaseURL:           cfg.BitrixBaseURL,
			UserGetSecret:     cfg.BitrixUserGetSecret,
			RecentListSecret:  cfg.BitrixRecentListSecret,
			DialogFetchSecret: cfg.BitrixDialogFetchSecret,
			OpenLinesSecret:   cfg.BitrixOpenLinesSecret,
		},
		ActiveMarker:  cfg.ActiveTitleMarker,
		RetryAttempts: cfg.ProviderRetryAttempts,
		RetryBackoff:  cfg.ProviderRetryBaseBackoff,
		HTTPClient:    &http.Client{Timeout: cfg.ProviderTimeout},
	}, log)
	if cfg.BitrixBaseURL == "" {
		log.Warn("chat provider webhook URL not configured, reconciliation will fail until set")
	}

	// Optional ticket event publishing
	var publisher service.TicketEventPublisher
	if cfg.NATSURL != "" {
		nc, err := natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, ticket events disabled", zap.Error(err))
		} else {
			defer nc.Close()
			publisher = natsclient.NewTicketPublisher(nc)
		}
	}

	// Initialize services
	conversationAnalyzer := analyzer.New(cfg.ResolutionKeywords, cfg.GuestLabel)
	policy := service.NewAccessPolicy()
	userSvc := service.NewUserService(db.Users, log)
	authSvc := service.NewAuthService(db.Users, cfg.JWTSecret, cfg.JWTExpiration, log)
	ticketSvc := service.NewTicketService(providerClient, conversationAnalyzer, db.Users, db.Tickets, publisher, service.TicketServiceOptions{
		OwnerPolicy:     cfg.OwnerPolicy,
		Workers:         cfg.SyncWorkers,
		FetchLimit:      cfg.MessageFetchLimit,
		ProviderTimeout: cfg.ProviderTimeout,
	}, log)

	// Background reconciliation schedule
	scheduler := service.NewSyncScheduler(ticketSvc, cfg.SyncInterval, log)
	if err := scheduler.Start(); err != nil {
		log.Error("failed to start scheduler", zap.Error(err))
		os.Exit(1)
	}
	defer scheduler.Stop()

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(db, providerPinger(cfg, providerClient))
	userHandler := handler.NewUserHandler(userSvc, log)
	authHandler := handler.NewAuthHandler(authSvc, userSvc, log)
	ticketHandler := handler.NewTicketHandler(ticketSvc, userSvc, policy, log)
	bitrixHandler := handler.NewBitrixHandler(ticketSvc, userSvc, policy, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public endpoints
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Registration and credential exchange have no token yet.
		r.Post("/users", userHandler.Register)
		r.Post("/auth", authHandler.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			// Accounts
			r.Get("/users", userHandler.List)
			r.Route("/users/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Get)
				r.Put("/", userHandler.Update)
				r.Delete("/", userHandler.Delete)
			})

			// Caller profile
			r.Get("/profile", authHandler.Profile)
			r.Put("/profile", authHandler.UpdateProfile)

			// Provider proxies
			r.Get("/bitrix", bitrixHandler.RecentChats)
			r.Get("/users_bitrix", bitrixHandler.UserLookup)

			// Tickets and reconciliation
			r.Get("/tickets", ticketHandler.List)
			r.Put("/tickets", ticketHandler.FullSync)
			r.Get("/tickets/{chat_id}", ticketHandler.Sync)
			r.Delete("/tickets/{id}", ticketHandler.Delete)
		})
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

// providerPinger exposes the chat provider to the readiness probe only when
// an endpoint set is configured.
func providerPinger(cfg *config.Config, client *bitrix.Client) handler.Pinger {
	if cfg.BitrixBaseURL == "" {
		return nil
	}
	return client
}
