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

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/johnquangdev/meeting-agent/pkg/validator"

	"github.com/johnquangdev/meeting-agent/internal/adapter/handler"
	"github.com/johnquangdev/meeting-agent/internal/adapter/repository"
	"github.com/johnquangdev/meeting-agent/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-agent/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-agent/internal/infrastructure/storage"
	meetinguse "github.com/johnquangdev/meeting-agent/internal/usecase/meeting"
	"github.com/johnquangdev/meeting-agent/internal/usecase/notify"
	"github.com/johnquangdev/meeting-agent/internal/usecase/reconcile"
	pkgai "github.com/johnquangdev/meeting-agent/pkg/ai"
	"github.com/johnquangdev/meeting-agent/pkg/config"
	"github.com/johnquangdev/meeting-agent/pkg/slack"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run AutoMigrate only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Running GORM AutoMigrate (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run AutoMigrate: %v", err)
		}
	} else {
		log.Println("🔄 Skipping GORM AutoMigrate; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Initialize event dedup store; Redis when configured, in-process otherwise
	var dedup reconcile.DedupStore
	if cfg.Redis.Enabled {
		log.Println("📦 Connecting to Redis...")
		redisClient, err := cache.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		dedup = cache.NewRedisDedupStore(redisClient, cfg.Notify.DedupTTL)
	} else {
		log.Println("📦 Redis disabled; using in-process event dedup")
		dedup = cache.NewMemoryDedupStore(cfg.Notify.DedupTTL)
	}

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	actionRepo := repository.NewActionRepository(db, cfg.Notify.SnoozePeriod)
	summaryRepo := repository.NewSummaryRepository(db)

	// Initialize Slack components
	log.Println("💬 Initializing Slack components...")
	slackClient := slack.NewClient(&cfg.Slack)
	resolver := notify.NewResolver(slackClient, logger)
	notifyService := notify.NewNotifyService(actionRepo, resolver, slackClient, cfg, logger)

	// Initialize extraction client
	log.Println("🤖 Initializing extraction client...")
	geminiClient := pkgai.NewGeminiClient(&cfg.Gemini)
	if !geminiClient.Configured() {
		log.Println("⚠️  GEMINI_API_KEY not set; transcript processing is disabled")
	}

	// Initialize summary archive storage
	var archiver meetinguse.Archiver
	if cfg.Storage.Enabled {
		log.Println("🗄️  Connecting to object storage...")
		minioClient, err := storage.NewMinIOClient(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to connect to object storage: %v", err)
		}
		archiver = minioClient
	} else {
		log.Println("🗄️  Object storage disabled; summaries kept in database only")
	}

	// Initialize services
	log.Println("✨ Initializing services...")
	meetingService := meetinguse.NewMeetingService(geminiClient, actionRepo, summaryRepo, notifyService, archiver, logger)
	reconcileService := reconcile.NewReconcileService(actionRepo, slackClient, dedup, logger)

	// Initialize handlers
	log.Println("🚀 Initializing handlers...")
	meetingHandler := handler.NewMeetingHandler(meetingService, logger)
	webhookHandler := handler.NewSlackWebhookHandler(reconcileService, cfg.Slack.SigningSecret, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, meetingHandler, webhookHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
