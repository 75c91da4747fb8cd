package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"google.golang.org/api/option"

	"github.com/mireiacv/citalert/internal/config"
	"github.com/mireiacv/citalert/internal/handler"
	"github.com/mireiacv/citalert/internal/middleware"
	"github.com/mireiacv/citalert/internal/repository"
	"github.com/mireiacv/citalert/internal/service"
	"github.com/mireiacv/citalert/pkg/booking"
	"github.com/mireiacv/citalert/pkg/notification"
)

// @title           CitAlert API
// @version         1.0
// @description     Appointment availability watcher: subscribes devices to (service, location) topics on the municipal booking site and pushes a notification when slots open up.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting CitAlert API Server [env=%s]", cfg.App.Env)

	// ==================== Sentry ====================
	// An empty DSN disables the SDK, so Init is unconditional.
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.Sentry.DSN,
		Environment: cfg.App.Env,
	}); err != nil {
		log.Printf("⚠️  Sentry init failed: %v (error reporting disabled)", err)
	}
	defer sentry.Flush(2 * time.Second)

	// ==================== Firebase (Firestore + FCM) ====================
	ctx := context.Background()

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Firebase app: %v", err)
	}

	db, err := app.Firestore(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Firestore: %v", err)
	}
	defer db.Close()
	log.Println("✅ Connected to Firestore")

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to get messaging client: %v", err)
	}
	log.Println("✅ Firebase FCM initialized")

	// ==================== Initialize Layers ====================
	// Repositories
	subRepo := repository.NewSubscriptionRepository(db)
	topicRepo := repository.NewTopicRepository(db)

	// Booking site client (prober + catalog)
	bookingClient := booking.NewClient(cfg.Booking.BaseURL, cfg.Poll.ProbeTimeout)

	// Dispatcher + poll pipeline
	dispatcher := notification.NewDispatcher(messagingClient, cfg.Booking.PortalLink, cfg.Booking.IconURL)
	reconciler := service.NewReconciler(subRepo, cfg.Poll.MaxSubscriptionAge)
	poller := service.NewPoller(
		topicRepo,
		bookingClient,
		subRepo,
		bookingClient,
		dispatcher,
		reconciler,
		cfg.Poll.ProbeTimeout,
		cfg.Poll.ProbeConcurrency,
	)

	// Handlers
	pollHandler := handler.NewPollHandler(poller)
	subHandler := handler.NewSubscriptionHandler(subRepo)
	catalogHandler := handler.NewCatalogHandler(bookingClient)
	topicHandler := handler.NewTopicHandler(topicRepo)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.HandleMethodNotAllowed = true

	// Swagger configuration
	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "citalert-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		// Tick trigger (external scheduler only)
		api.POST("/poll", middleware.TriggerAuth(cfg.Poll.TriggerSecret), pollHandler.Trigger)

		// Device-facing subscription API
		api.POST("/subscriptions", subHandler.Subscribe)
		api.GET("/subscriptions", subHandler.List)
		api.DELETE("/subscriptions/:id", subHandler.Unsubscribe)

		// Booking catalog proxy
		api.GET("/services", catalogHandler.Services)
		api.GET("/services/:id/locations", catalogHandler.Locations)

		// Topic counters
		api.GET("/topics/:topic/counters", topicHandler.Counters)
	}

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 CitAlert API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("⏰ Poll trigger: POST http://0.0.0.0:%s/api/v1/poll (bearer secret)", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server exited gracefully")
}
