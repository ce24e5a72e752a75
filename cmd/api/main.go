package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"recipesnap/internal/api"
	"recipesnap/internal/ingredient"
	"recipesnap/internal/platform/gemini"
	"recipesnap/internal/platform/localllm"
	"recipesnap/internal/platform/tts"
	"recipesnap/internal/recipe"
	"recipesnap/internal/speech"
)

// Config represents the application configuration.
type Config struct {
	GeminiAPIKey  string `json:"gemini_api_key"`
	DatabaseURL   string `json:"database_url"`
	RedisURL      string `json:"redis_url"`
	LocalLLMURL   string `json:"local_llm_url"`
	LocalLLMModel string `json:"local_llm_model"`
	TTSLanguage   string `json:"tts_language"`
	Port          string `json:"port"`
}

func main() {
	ctx := context.Background()

	// Read configuration from config.json
	configData, err := os.ReadFile("config.json")
	if err != nil {
		panic(fmt.Errorf("failed to read config.json: %w", err))
	}

	var config Config
	if err := json.Unmarshal(configData, &config); err != nil {
		panic(fmt.Errorf("failed to unmarshal config.json: %w", err))
	}
	if config.Port == "" {
		config.Port = "8000"
	}

	geminiClient, err := gemini.NewClient(ctx, config.GeminiAPIKey)
	if err != nil {
		panic(fmt.Errorf("error creating gemini client: %w", err))
	}

	llmClient := localllm.NewClient(config.LocalLLMURL, config.LocalLLMModel)
	detector := ingredient.NewDetector(geminiClient, llmClient)
	ttsClient := tts.NewClient("", config.TTSLanguage)

	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		panic(fmt.Errorf("failed to connect to database: %w", err))
	}

	detectionStore, err := ingredient.NewPostgresStore(db)
	if err != nil {
		panic(fmt.Errorf("error creating detection store: %w", err))
	}

	clipStore, err := speech.NewPostgresStore(db)
	if err != nil {
		panic(fmt.Errorf("error creating audio clip store: %w", err))
	}

	recipeCache, err := recipe.NewRedisCache(config.RedisURL, 24*time.Hour)
	if err != nil {
		panic(fmt.Errorf("error creating recipe cache: %w", err))
	}

	// Create directories for generated artifacts up front so the static
	// mounts have something to serve.
	for _, dir := range []string{"audio_files", "images"} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			panic(fmt.Errorf("failed to create %s directory: %w", dir, err))
		}
	}

	handler := api.NewHandler(detector, llmClient, ttsClient, detectionStore, clipStore, recipeCache)

	r := gin.Default()

	// Configure CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/", handler.Root)
	r.POST("/detect-ingredients", handler.DetectIngredients)
	r.GET("/ingredients/:image_hash", handler.GetDetection)
	r.POST("/generate-recipe", handler.GenerateRecipe)
	r.POST("/text-to-speech", handler.TextToSpeech)
	r.GET("/health", handler.Health)
	r.Static("/audio", "./audio_files")
	r.Static("/images", "./images")

	r.Run(":" + config.Port)
}
