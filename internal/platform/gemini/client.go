package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const modelName = "gemini-1.5-flash"

// Client is a client for the Gemini API, used as the captioning pipeline.
type Client struct {
	model *genai.GenerativeModel
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Client{model: client.GenerativeModel(modelName)}, nil
}

// GenerateImageHash calculates the SHA256 hash of the image data.
func GenerateImageHash(imageData []byte) string {
	hash := sha256.Sum256(imageData)
	return hex.EncodeToString(hash[:])
}

// CaptionImage describes the image in a single sentence, naming each visible
// food item, so the caption can be scanned for ingredient words.
func (c *Client) CaptionImage(ctx context.Context, imageData []byte) (string, error) {
	prompt := []genai.Part{
		genai.ImageData("png", imageData),
		genai.Text("Describe this image in one short sentence. Name every visible food item or ingredient explicitly, using common single-word names where possible."),
	}

	resp, err := c.model.GenerateContent(ctx, prompt...)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini for caption")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response format from Gemini for caption")
	}

	return string(text), nil
}

// ModelName returns the pipeline identifier for health reporting.
func (c *Client) ModelName() string {
	return modelName
}
