package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"

	"github.com/yourorg/popularity-vision/internal/api"
	"github.com/yourorg/popularity-vision/internal/config"
	"github.com/yourorg/popularity-vision/internal/db"
	"github.com/yourorg/popularity-vision/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// Initialize database
	database, err := db.NewDatabase(db.FromEnv())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Initialize Gin
	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20 // 8MB

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Initialize Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort:  getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
	})
	if err != nil {
		log.Printf("Warning: Failed to connect to Temporal: %v", err)
		// Continue without Temporal for now
	}
	if temporalClient != nil {
		defer temporalClient.Close()
	}

	store, err := storage.NewS3(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}

	handler := api.NewHandler(database.DB)
	r.GET("/", handler.Welcome)
	r.GET("/healthz", handler.Healthz)

	// Primary query surface
	r.GET("/workflows", handler.GetWorkflows)
	r.GET("/workflows/:id", handler.GetWorkflow)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/workflows", handler.GetWorkflows)
		apiV1.GET("/workflows/:id", handler.GetWorkflow)
		apiV1.GET("/stats/platforms", handler.GetPlatformStats)

		uploadHandler := api.NewUploadHandler(store, cfg.KeywordsURI)
		apiV1.POST("/keywords", uploadHandler.UploadKeywords)

		// Ingestion routes (only if Temporal is available)
		if temporalClient != nil {
			ingestHandler := api.NewIngestHandler(temporalClient)
			apiV1.POST("/ingestions", ingestHandler.StartIngestion)
			apiV1.GET("/ingestions/:id/status", ingestHandler.GetIngestionStatus)
		}
	}

	// Start server
	port := getEnv("PORT", "8080")
	log.Printf("Server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
