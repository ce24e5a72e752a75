package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"recipesnap/internal/ingredient"
	"recipesnap/internal/platform/gemini"
	"recipesnap/internal/platform/localllm"
	"recipesnap/internal/recipe"
	"recipesnap/internal/speech"
)

// IngredientDetector defines the interface for the vision pipelines.
type IngredientDetector interface {
	Detect(ctx context.Context, imageData []byte) ([]ingredient.Ingredient, string, error)
	Pipelines() map[string]string
}

// RecipeGenerator defines the interface for the text-generation pipeline.
type RecipeGenerator interface {
	GenerateRecipe(ctx context.Context, ingredients []string, regenerate bool) (*recipe.Recipe, error)
	ModelName() string
}

// SpeechSynthesizer defines the interface for the speech pipeline.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, path string) error
	Backend() string
}

// DetectionStore defines the interface for cached detections.
type DetectionStore interface {
	GetDetection(ctx context.Context, imageHash string) (*ingredient.Detection, error)
	SaveDetection(ctx context.Context, detection *ingredient.Detection) error
	Ping(ctx context.Context) error
}

// ClipStore defines the interface for audio clip records.
type ClipStore interface {
	SaveClip(ctx context.Context, clip *speech.Clip) error
	GetClipByTextHash(ctx context.Context, textHash string) (*speech.Clip, error)
}

// RecipeCache defines the interface for cached generated recipes.
type RecipeCache interface {
	Get(ctx context.Context, key string) (*recipe.Recipe, error)
	Set(ctx context.Context, key string, recipe *recipe.Recipe) error
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests.
type Handler struct {
	Detector    IngredientDetector
	Generator   RecipeGenerator
	Synthesizer SpeechSynthesizer
	Detections  DetectionStore
	Clips       ClipStore
	Recipes     RecipeCache

	AudioDir string
	ImageDir string
}

// NewHandler creates a new Handler.
func NewHandler(detector IngredientDetector, generator RecipeGenerator, synthesizer SpeechSynthesizer, detections DetectionStore, clips ClipStore, recipes RecipeCache) *Handler {
	return &Handler{
		Detector:    detector,
		Generator:   generator,
		Synthesizer: synthesizer,
		Detections:  detections,
		Clips:       clips,
		Recipes:     recipes,
		AudioDir:    "audio_files",
		ImageDir:    "images",
	}
}

// Root reports that the API is up.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "RecipeSnap Backend API", "status": "running"})
}

// DetectIngredients handles image uploads and returns detected ingredients.
func (h *Handler) DetectIngredients(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		log.Printf("Error getting form file: %v", err)
		c.String(http.StatusBadRequest, fmt.Sprintf("get form err: %s", err.Error()))
		return
	}

	// Validate file extension
	allowedExtensions := map[string]bool{
		".jpeg": true,
		".jpg":  true,
		".png":  true,
	}
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[extension] {
		c.String(http.StatusBadRequest, "Invalid file type. Only JPEG, JPG, and PNG images are allowed.")
		return
	}

	src, err := file.Open()
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("open file err: %s", err.Error()))
		return
	}
	defer src.Close()

	imageData, err := io.ReadAll(src)
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("read image err: %s", err.Error()))
		return
	}

	if _, _, err := image.Decode(bytes.NewReader(imageData)); err != nil {
		c.String(http.StatusBadRequest, "File must be a decodable image.")
		return
	}

	imageHash := gemini.GenerateImageHash(imageData)

	// Create a context with a 45-second timeout for external calls
	ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
	defer cancel()

	// A previously seen image skips the model calls entirely.
	cached, err := h.Detections.GetDetection(ctx, imageHash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, "Database query timed out")
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}
	if cached != nil {
		log.Printf("Detection found in database for image hash: %s", imageHash)
		c.JSON(http.StatusOK, gin.H{"ingredients": cached.Ingredients, "count": len(cached.Ingredients), "image_hash": imageHash})
		return
	}

	log.Printf("Detection not found in database, running vision pipelines for image hash: %s", imageHash)
	ingredients, caption, err := h.Detector.Detect(ctx, imageData)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, "Vision pipeline call timed out after 45 seconds")
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("detection err: %s", err.Error()))
		return
	}

	// Keep a resized copy of the upload around for the UI.
	imagePath, err := h.saveImage(imageData, imageHash, extension)
	if err != nil {
		log.Printf("failed to save uploaded image %s: %s", imageHash, err.Error())
	}

	detection := &ingredient.Detection{
		ImageHash:   imageHash,
		Ingredients: ingredients,
		Caption:     caption,
		ImagePath:   imagePath,
	}
	if saveErr := h.Detections.SaveDetection(ctx, detection); saveErr != nil {
		log.Printf("failed to save detection: %s", saveErr.Error())
	}

	c.JSON(http.StatusOK, gin.H{"ingredients": ingredients, "count": len(ingredients), "image_hash": imageHash})
}

// GetDetection handles requests to retrieve a cached detection by image hash.
func (h *Handler) GetDetection(c *gin.Context) {
	imageHash := c.Param("image_hash")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	detection, err := h.Detections.GetDetection(ctx, imageHash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, "Database query timed out after 5 seconds")
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}

	if detection == nil {
		c.String(http.StatusNotFound, "Detection not found")
		return
	}

	c.JSON(http.StatusOK, detection)
}

// GenerateRecipeRequest is the request body for recipe generation.
type GenerateRecipeRequest struct {
	Ingredients []string `json:"ingredients"`
	Regenerate  bool     `json:"regenerate"`
}

// GenerateRecipe handles requests to generate a recipe from ingredient names.
func (h *Handler) GenerateRecipe(c *gin.Context) {
	var req GenerateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err.Error()))
		return
	}

	var names []string
	for _, name := range req.Ingredients {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	if len(names) == 0 {
		c.String(http.StatusBadRequest, "No ingredients provided")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
	defer cancel()

	key := recipe.CacheKey(names)

	if !req.Regenerate {
		cached, err := h.Recipes.Get(ctx, key)
		if err != nil {
			log.Printf("recipe cache lookup failed, generating instead: %v", err)
		}
		if cached != nil {
			log.Printf("Recipe found in cache for ingredient key: %s", key)
			c.JSON(http.StatusOK, gin.H{"recipe": cached})
			return
		}
	}

	log.Printf("Generating recipe for ingredients: %s, regenerate: %t", strings.Join(names, ", "), req.Regenerate)
	usedFallback := false
	r, err := h.Generator.GenerateRecipe(ctx, names, req.Regenerate)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			c.String(http.StatusRequestTimeout, "Recipe generation timed out after 45 seconds")
			return
		case errors.Is(err, localllm.ErrUnparsableRecipe):
			log.Printf("model reply was not a usable recipe, using fallback: %v", err)
			r = recipe.Fallback(names)
			usedFallback = true
		default:
			c.String(http.StatusInternalServerError, fmt.Sprintf("generation err: %s", err.Error()))
			return
		}
	}

	// The fallback is never cached, so the next request for the same
	// ingredient set reaches the model again.
	if !usedFallback {
		if cacheErr := h.Recipes.Set(ctx, key, r); cacheErr != nil {
			log.Printf("failed to cache recipe: %s", cacheErr.Error())
		}
	}

	c.JSON(http.StatusOK, gin.H{"recipe": r})
}

// TextToSpeechRequest is the request body for speech synthesis.
type TextToSpeechRequest struct {
	Text string `json:"text"`
}

// TextToSpeech handles requests to convert recipe text into an audio file.
func (h *Handler) TextToSpeech(c *gin.Context) {
	var req TextToSpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err.Error()))
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		c.String(http.StatusBadRequest, "No text provided")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
	defer cancel()

	// Reuse an existing clip for text we have synthesized before.
	textHash := speech.HashText(text)
	clip, err := h.Clips.GetClipByTextHash(ctx, textHash)
	if err != nil {
		log.Printf("audio clip lookup failed, synthesizing instead: %v", err)
	}
	if clip != nil {
		if _, statErr := os.Stat(filepath.Join(h.AudioDir, clip.Filename)); statErr == nil {
			log.Printf("Audio clip found for text hash: %s", textHash)
			c.JSON(http.StatusOK, gin.H{"audio_url": "/audio/" + clip.Filename, "filename": clip.Filename})
			return
		}
	}

	if err := os.MkdirAll(h.AudioDir, 0755); err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("failed to create audio directory: %s", err.Error()))
		return
	}

	filename := uuid.NewString() + ".mp3"
	audioPath := filepath.Join(h.AudioDir, filename)

	if err := h.Synthesizer.Synthesize(ctx, text, audioPath); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, "Speech synthesis timed out after 45 seconds")
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("speech synthesis err: %s", err.Error()))
		return
	}

	if saveErr := h.Clips.SaveClip(ctx, &speech.Clip{Filename: filename, TextHash: textHash}); saveErr != nil {
		log.Printf("failed to save audio clip record: %s", saveErr.Error())
	}

	c.JSON(http.StatusOK, gin.H{"audio_url": "/audio/" + filename, "filename": filename})
}

// Health reports pipeline identifiers and backing store reachability.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	pipelines := h.Detector.Pipelines()
	pipelines["recipe_generator"] = h.Generator.ModelName()
	pipelines["text_to_speech"] = h.Synthesizer.Backend()

	status := "healthy"

	database := "ok"
	if err := h.Detections.Ping(ctx); err != nil {
		database = err.Error()
		status = "degraded"
	}

	cache := "ok"
	if err := h.Recipes.Ping(ctx); err != nil {
		cache = err.Error()
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"pipelines": pipelines,
		"database":  database,
		"cache":     cache,
	})
}

func (h *Handler) saveImage(imageData []byte, imageHash string, originalExtension string) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	if img.Bounds().Dx() > 800 {
		img = resize.Resize(800, 0, img, resize.Lanczos3)
	}

	if err := os.MkdirAll(h.ImageDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	imagePath := filepath.Join(h.ImageDir, imageHash+originalExtension)
	out, err := os.Create(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer out.Close()

	switch originalExtension {
	case ".jpeg", ".jpg":
		err = jpeg.Encode(out, img, nil)
	case ".png":
		err = png.Encode(out, img)
	default:
		return "", fmt.Errorf("unsupported image format: %s", originalExtension)
	}

	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	return imagePath, nil
}
