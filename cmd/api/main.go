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

	"github.com/derricker/meetai/internal/adapter/handler"
	"github.com/derricker/meetai/internal/adapter/repository"
	"github.com/derricker/meetai/internal/infrastructure/cache"
	"github.com/derricker/meetai/internal/infrastructure/database"
	"github.com/derricker/meetai/internal/infrastructure/external/stream"
	"github.com/derricker/meetai/internal/infrastructure/jobs"
	chatUsecase "github.com/derricker/meetai/internal/usecase/chat"
	meetingUsecase "github.com/derricker/meetai/internal/usecase/meeting"
	"github.com/derricker/meetai/internal/usecase/pipeline"
	pkgai "github.com/derricker/meetai/pkg/ai"
	"github.com/derricker/meetai/pkg/config"
	pkgvalidator "github.com/derricker/meetai/pkg/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())

	// Database
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("DB_AUTO_MIGRATE is enabled in production; manage schema with sql-migrate instead")
		}
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Redis (worker wake-ups)
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Repositories
	meetingRepo := repository.NewMeetingRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	userRepo := repository.NewUserRepository(db)
	jobRepo := repository.NewJobRepository(db)

	// External clients
	streamClient := stream.NewClient(&cfg.Stream)
	llmClient := pkgai.NewOpenAIClient(&cfg.OpenAI)

	// Job queue and transcript pipeline worker
	queue := jobs.NewQueue(jobRepo, redisClient, cfg.Worker.MaxAttempts, logger)
	pipelineService := pipeline.NewService(
		meetingRepo,
		userRepo,
		agentRepo,
		jobRepo,
		llmClient,
		cfg.OpenAI.Timeout,
		logger,
	)
	worker := jobs.NewWorker(jobRepo, pipelineService, redisClient, cfg.Worker, logger)

	// Usecases
	meetingService := meetingUsecase.NewService(meetingRepo, agentRepo, streamClient, queue, logger)
	chatService := chatUsecase.NewService(meetingRepo, agentRepo, streamClient, llmClient, logger)

	// HTTP surface
	webhookHandler := handler.NewWebhookHandler(streamClient, meetingService, chatService, logger)
	router := handler.NewRouter(cfg, webhookHandler)
	router.Setup(e)

	// Start background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	worker.Start(workerCtx)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment))

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	worker.Stop()

	logger.Info("server stopped")
}
