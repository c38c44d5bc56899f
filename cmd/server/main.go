package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"

	"github.com/tuanngo/rmreach/internal/handlers"
	"github.com/tuanngo/rmreach/internal/repositories"
	"github.com/tuanngo/rmreach/internal/services"
	"github.com/tuanngo/rmreach/pkg/config"
	"github.com/tuanngo/rmreach/pkg/database"
	"github.com/tuanngo/rmreach/pkg/logger"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	logger.Init()
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	if err := database.Init(cfg.Database.Path); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Initialize dependencies
	customerRepo := repositories.NewCustomerRepository(database.DB)
	rmRepo := repositories.NewRelationshipManagerRepository(database.DB)
	emailRepo := repositories.NewGeneratedEmailRepository(database.DB)
	taskRepo := repositories.NewRMTaskRepository(database.DB)

	openaiClient := newOpenAIClient(cfg)

	eligibilityService := services.NewEligibilityService(customerRepo)
	generationService := services.NewEmailGenerationService(customerRepo, rmRepo, openaiClient, cfg.OpenAI.DefaultModel)
	taskSyncService := services.NewTaskSyncService(taskRepo)
	emailService := services.NewGeneratedEmailService(emailRepo, customerRepo, rmRepo, generationService, taskSyncService)
	schedulerService := services.NewEmailSchedulerService(eligibilityService, generationService, emailService, cfg.Scheduler.Workers)

	// Initialize router
	router := gin.Default()

	genEmailHandler := handlers.NewGenEmailHandler(emailService, schedulerService)
	genEmailHandler.RegisterRoutes(router)

	healthHandler := handlers.NewHealthHandler(database.DB)
	router.GET("/health", healthHandler.Health)

	// Start the daily generation schedule
	cronRunner, err := schedulerService.StartCron(cfg.Scheduler.CronSpec)
	if err != nil {
		log.Fatalf("Failed to start schedule: %v", err)
	}
	defer cronRunner.Stop()

	// Setup server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Errorf("Server shutdown failed")
	}

	logger.Infof("Server stopped")
}

// newOpenAIClient builds the chat completion client, honoring an optional
// custom base URL for proxies and compatible providers
func newOpenAIClient(cfg *config.Config) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}
