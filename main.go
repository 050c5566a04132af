package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobRadarAPI/handlers"
	"jobRadarAPI/internal/notification"
	"jobRadarAPI/middleware"
	"jobRadarAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	profileService      *services.ProfileService
	adminService        *services.AdminService
	queryService        *services.QueryService
	jobService          *services.JobService
	notificationService *services.NotificationService
	billingService      *services.BillingService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	profileService = services.NewProfileService(dbPool)
	adminService = services.NewAdminService(dbPool)
	queryService = services.NewQueryService(dbPool)
	jobService = services.NewJobService(dbPool)
	notificationService = services.NewNotificationService(dbPool)
	billingService = services.NewBillingService(profileService)

	dispatcher := notificationService.Dispatcher()
	dispatcher.SetEmailProvider(&notification.SMTPEmailSender{})
	dispatcher.SetWebhookProvider(notification.NewWebhookSender())

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		dispatcher.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	// Initialize handlers
	profileHandler := handlers.NewProfileHandler(profileService)
	queryHandler := handlers.NewQueryHandler(queryService, profileService)
	jobHandler := handlers.NewJobHandler(jobService, profileService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, profileService)
	billingHandler := handlers.NewBillingHandler(billingService, profileService)
	adminHandler := handlers.NewAdminHandler(adminService, profileService)
	clerkWebhookHandler := handlers.NewClerkWebhookHandler(profileService)
	stripeWebhookHandler := handlers.NewStripeWebhookHandler(profileService, billingService, notificationService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "jobRadar-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", clerkWebhookHandler.HandleWebhook).Methods("POST")
	r.HandleFunc("/webhooks/stripe", stripeWebhookHandler.HandleWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/plans", billingHandler.GetPlans).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/profile", profileHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/profile", profileHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/profile", profileHandler.DeleteAccount).Methods("DELETE")

	protected.HandleFunc("/subscription", billingHandler.GetSubscription).Methods("GET")
	protected.HandleFunc("/billing/checkout", billingHandler.CreateCheckoutSession).Methods("POST")
	protected.HandleFunc("/billing/portal", billingHandler.CreatePortalSession).Methods("POST")

	protected.HandleFunc("/queries", queryHandler.ListQueries).Methods("GET")
	protected.HandleFunc("/queries", queryHandler.CreateQuery).Methods("POST")
	protected.HandleFunc("/queries/{id}", queryHandler.GetQuery).Methods("GET")
	protected.HandleFunc("/queries/{id}", queryHandler.UpdateQuery).Methods("PUT")
	protected.HandleFunc("/queries/{id}", queryHandler.DeleteQuery).Methods("DELETE")
	protected.HandleFunc("/queries/{id}/pause", queryHandler.PauseQuery).Methods("POST")
	protected.HandleFunc("/queries/{id}/resume", queryHandler.ResumeQuery).Methods("POST")

	protected.HandleFunc("/jobs", jobHandler.ListJobs).Methods("GET")
	protected.HandleFunc("/jobs/{id}", jobHandler.DeleteJob).Methods("DELETE")
	protected.HandleFunc("/jobs/{id}/restore", jobHandler.RestoreJob).Methods("POST")
	protected.HandleFunc("/jobs/{id}/applied", jobHandler.SetApplied).Methods("PUT")
	protected.HandleFunc("/dashboard/stats", jobHandler.GetDashboardStats).Methods("GET")

	protected.HandleFunc("/notifications/preferences", notificationHandler.GetPreferences).Methods("GET")
	protected.HandleFunc("/notifications/preferences", notificationHandler.UpdatePreferences).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/logs", notificationHandler.ListLogs).Methods("GET")
	protected.HandleFunc("/notifications/status", notificationHandler.GetStatus).Methods("GET")
	protected.HandleFunc("/notifications/test", notificationHandler.SendTest).Methods("POST")

	protected.HandleFunc("/admin/users", adminHandler.ListUsers).Methods("GET")
	protected.HandleFunc("/admin/users/{id}", adminHandler.UpdateUser).Methods("PATCH")
	protected.HandleFunc("/admin/users/{id}", adminHandler.DeleteUser).Methods("DELETE")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	notificationService.Dispatcher().Stop()

	log.Println("Server shutdown complete")
}
