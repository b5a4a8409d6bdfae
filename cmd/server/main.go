package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geoscribe/backend/internal/config"
	"github.com/geoscribe/backend/internal/domain"
	"github.com/geoscribe/backend/internal/handler"
	appMiddleware "github.com/geoscribe/backend/internal/middleware"
	"github.com/geoscribe/backend/internal/repository"
	"github.com/geoscribe/backend/internal/service"
	"github.com/geoscribe/backend/pkg/analyzer"
	"github.com/geoscribe/backend/pkg/payment"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if present (for local development).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()

	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer db.Close()

	if err := repository.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}
	log.Println("database connected & migrated")

	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, cfg.FreeUsageLimit, userRepo)
	if err := authSvc.SeedAdmin(ctx); err != nil {
		log.Fatalf("admin seed error: %v", err)
	}

	gateway := payment.NewClient(cfg.CreemAPIBase, cfg.CreemAPIKey)
	billingSvc := service.NewBillingService(orderRepo, userRepo, gateway, service.BillingConfig{
		ProductIDs: map[string]string{
			domain.PlanMonthly: cfg.CreemProductMonthly,
			domain.PlanYearly:  cfg.CreemProductYearly,
		},
		SuccessURL: cfg.AppBaseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
	})
	usageSvc := service.NewUsageService(userRepo)

	var analyzerClient analyzer.Client = analyzer.Noop{}
	if cfg.AnalyzerURL != "" {
		analyzerClient = analyzer.NewHTTPClient(cfg.AnalyzerURL)
	} else {
		log.Println("ANALYZER_URL not set; analysis falls back to empty results")
	}

	handler.Verbose = !cfg.Production()

	authHandler := handler.NewAuthHandler(authSvc)
	paymentHandler := handler.NewPaymentHandler(billingSvc)
	webhookHandler := handler.NewWebhookHandler(billingSvc, cfg.CreemWebhookSecret)
	usageHandler := handler.NewUsageHandler(usageSvc)
	analyzeHandler := handler.NewAnalyzeHandler(usageSvc, analyzerClient)
	adminHandler := handler.NewAdminHandler(db, orderRepo, authSvc, billingSvc)
	healthHandler := handler.NewHealthHandler(db)

	r := chi.NewRouter()

	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40).
	globalRL := appMiddleware.NewRateLimiter(20, 40)
	r.Use(globalRL.Middleware())

	// Public routes. The payment webhook authenticates by signature, not by
	// session.
	r.Get("/health", healthHandler.Check)
	r.Post("/api/payment/webhook", webhookHandler.HandlePayment)

	// Credential endpoints behind a stricter limiter.
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Protected API routes.
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		r.Get("/api/auth/me", authHandler.Me)

		// Payment
		r.Post("/api/payment/checkout", paymentHandler.CreateCheckout)
		r.Get("/api/payment/verify", paymentHandler.Verify)
		r.Post("/api/payment/activate", paymentHandler.Activate)

		// Usage quota
		r.Get("/api/usage", usageHandler.Status)
		r.Post("/api/usage/consume", usageHandler.Consume)

		// Metered feature
		r.Post("/api/analyze", analyzeHandler.Analyze)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)
			r.Get("/api/admin/stats", adminHandler.GetStats)
			r.Get("/api/admin/users", adminHandler.ListUsers)
			r.Delete("/api/admin/users/{id}", adminHandler.DeleteUser)
			r.Post("/api/admin/membership", adminHandler.UpdateMembership)
		})
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("geoscribe backend listening at http://%s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
