package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/malindard/llm-analyzer/db"
	"github.com/malindard/llm-analyzer/internal/config"
	"github.com/malindard/llm-analyzer/internal/handler"
	"github.com/malindard/llm-analyzer/internal/repository"
	"github.com/malindard/llm-analyzer/pkg/llm"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

type redisQueue struct{}

func (redisQueue) Push(data string) error {
	return db.PushToQueue(db.AnalysisQueueKey, data)
}

func main() {
	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err := db.Connect(); err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	var queue handler.AnalysisQueue
	if os.Getenv("REDIS_URL") != "" {
		if err := db.ConnectRedis(); err != nil {
			log.Fatalf("error connecting to redis: %v", err)
		}
		defer db.CloseRedis()
		queue = redisQueue{}
	}

	phishingRepo := repository.NewPhishingRepository(db.DB)
	client := llm.NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.Model, cfg.Referer, cfg.AppTitle)
	analyzeHandler := handler.NewAnalyzeHandler(phishingRepo, client, queue, handler.Options{
		Model:                cfg.Model,
		IncludeEmailFeatures: cfg.IncludeEmailFeatures,
	})

	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}

	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	slog.Info("AllowOrigins URL:", "urls", allowedOrigins)

	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	r.GET("/llm-analyze/:id", analyzeHandler.AnalyzeByID)
	r.POST("/llm-analyze", analyzeHandler.Analyze)
	r.GET("/", analyzeHandler.GetHealth)

	slog.Info("starting LLM analyzer", "port", cfg.Port, "model", cfg.Model)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
