package localllm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"recipesnap/internal/ingredient"
	"recipesnap/internal/recipe"
)

// ErrUnparsableRecipe is returned when the model reply cannot be parsed
// into a recipe. Callers may substitute a fallback recipe.
var ErrUnparsableRecipe = errors.New("model reply is not a usable recipe")

// Client represents a client for a local OpenAI-compatible inference server.
// It backs both the object-detection and the recipe-generation pipelines.
type Client struct {
	httpClient *http.Client
	apiURL     string
	model      string
}

// NewClient creates a new client for the local inference server.
func NewClient(apiURL, model string) *Client {
	if apiURL == "" {
		apiURL = "http://localhost:1234/v1/chat/completions"
	}
	if model == "" {
		model = "gemma-3-12b-it:2"
	}
	return &Client{
		httpClient: &http.Client{},
		apiURL:     apiURL,
		model:      model,
	}
}

// Request represents the request body for the local inference server.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Message represents a message in the request.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content represents the content of a message.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents the image URL in the content.
type ImageURL struct {
	URL string `json:"url"`
}

// Response represents the response from the local inference server.
type Response struct {
	Choices []Choice `json:"choices"`
}

// Choice represents a choice in the response.
type Choice struct {
	Message ResponseMessage `json:"message"`
}

// ResponseMessage represents a message in the response.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateContent sends a prompt, with an optional image, to the local
// inference server and returns the reply text.
func (c *Client) GenerateContent(ctx context.Context, text string, imageData []byte, temperature float64) (string, error) {
	content := []Content{
		{
			Type: "text",
			Text: text,
		},
	}
	if len(imageData) > 0 {
		content = append(content, Content{
			Type: "image_url",
			ImageURL: &ImageURL{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData),
			},
		})
	}

	reqBody := Request{
		Model: c.model,
		Messages: []Message{
			{
				Role:    "user",
				Content: content,
			},
		},
		Temperature: temperature,
		MaxTokens:   1024,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	var llmResp Response
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(llmResp.Choices) > 0 {
		return llmResp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("no content found in response")
}

// DetectObjects asks the model to label objects in the image with confidence
// scores. The caller filters the labels against its food classes.
func (c *Client) DetectObjects(ctx context.Context, imageData []byte) ([]ingredient.Ingredient, error) {
	prompt := "List the distinct objects visible in this image. Return a single, clean JSON array where each element is an object with keys 'label' (string, lowercase common name) and 'confidence' (number between 0 and 1). Do not include any markdown formatting."

	responseText, err := c.GenerateContent(ctx, prompt, imageData, 0.2)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	startIndex := strings.Index(responseText, "[")
	endIndex := strings.LastIndex(responseText, "]")
	if startIndex == -1 || endIndex == -1 || startIndex > endIndex {
		return nil, fmt.Errorf("could not find JSON array in response: %s", responseText)
	}

	var objects []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(responseText[startIndex:endIndex+1]), &objects); err != nil {
		return nil, fmt.Errorf("failed to unmarshal objects from response: %w", err)
	}

	detected := make([]ingredient.Ingredient, 0, len(objects))
	for _, obj := range objects {
		detected = append(detected, ingredient.Ingredient{Name: obj.Label, Confidence: obj.Confidence})
	}

	return detected, nil
}

// GenerateRecipe generates a recipe from a list of ingredient names. When
// regenerate is set the model is nudged away from its previous suggestion.
func (c *Client) GenerateRecipe(ctx context.Context, ingredients []string, regenerate bool) (*recipe.Recipe, error) {
	prompt := fmt.Sprintf("I have these ingredients: %s. Suggest a recipe that uses them. Please return a single, clean JSON object with the following keys and data types: 'title' (string), 'ingredients' (array of strings), 'instructions' (array of strings), and 'cookingTime' (string). The JSON response should be clean and not contain any markdown formatting (e.g., ```json).", strings.Join(ingredients, ", "))

	temperature := 0.7
	if regenerate {
		prompt += " Suggest a different dish than the most obvious choice for these ingredients."
		temperature = 1
	}

	responseText, err := c.GenerateContent(ctx, prompt, nil, temperature)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	r, err := recipe.Parse(responseText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableRecipe, err)
	}

	return r, nil
}

// ModelName returns the pipeline identifier for health reporting.
func (c *Client) ModelName() string {
	return c.model
}
