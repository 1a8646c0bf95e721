package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photo-annotation-pipeline/config"
	"photo-annotation-pipeline/database"
	"photo-annotation-pipeline/handlers"
	"photo-annotation-pipeline/metrics"
	"photo-annotation-pipeline/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate that the upload directory is reachable
	if _, err := os.Stat(cfg.UploadPath); err != nil {
		log.Fatalf("UPLOAD_PATH %q is not accessible: %v", cfg.UploadPath, err)
	}

	// Register Prometheus metrics
	metrics.Register()

	// Initialize database
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize service
	annotationService := service.NewService(cfg, db)

	// Initialize handlers
	handlers := handlers.NewHandlers(db, annotationService)

	// Setup HTTP server
	router := gin.Default()

	// API routes
	api := router.Group("/api/v1")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/status", handlers.GetAnnotationStatus)
		api.GET("/annotations/:id", handlers.GetAnnotationByPhoto)
		api.POST("/annotations/:id", handlers.AnnotatePhoto)
		api.GET("/photos/search", handlers.SearchPhotos)
		api.GET("/stats", handlers.GetAnnotationStats)
	}

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start the annotation service
	annotationService.Start()

	// Start HTTP server in a goroutine
	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop the annotation service
	annotationService.Stop()

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
