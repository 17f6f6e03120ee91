package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"photoadmit/internal/admission"
	"photoadmit/internal/database"
	"photoadmit/internal/logger"
	"photoadmit/internal/observability"
	"photoadmit/internal/pipeline"
	"photoadmit/internal/pipeline/analyzers"
	"photoadmit/internal/repositories"
	"photoadmit/internal/router"
	"photoadmit/internal/storage"

	"photoadmit/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	databaseURL := config.GetDatabaseURL()
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	port := config.GetPort()
	env := getEnv("NODE_ENV", "development")

	logger.Init("photoadmit", env, logger.ParseLevelFromEnv())

	shutdownOTel, err := observability.InitOTel(context.Background(), "photoadmit")
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	} else {
		defer func() {
			if err := shutdownOTel(context.Background()); err != nil {
				log.Printf("Error shutting down OpenTelemetry: %v", err)
			}
		}()
		log.Println("✓ OpenTelemetry initialized")
	}

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.New(databaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	log.Println("✓ Connected to PostgreSQL")

	blobs, err := storage.New(config.GetStorageConfig())
	if err != nil {
		log.Fatal("Failed to configure blob storage:", err)
	}

	store := repositories.NewImageRepository(db)
	orchestrator := pipeline.New(store, blobs, analyzers.LoadFromEnv(), config.GetWorkerPoolSize(runtime.NumCPU()))
	facade := admission.New(store, blobs, orchestrator)

	r := router.Setup(db, facade)

	server := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 Server starting on port %s", port)
		log.Printf("🌍 Environment: %s", env)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("📤 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if err := facade.Shutdown(ctx); err != nil {
		log.Printf("Warning: pipeline shutdown did not complete cleanly: %v", err)
	}

	log.Println("✅ Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
