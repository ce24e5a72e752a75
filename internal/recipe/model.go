package recipe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Recipe represents the structure of a generated recipe.
type Recipe struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	CookingTime  string   `json:"cookingTime"`
}

// Parse extracts a Recipe from raw model output. Generation models tend to
// wrap the JSON in markdown fences or prose, so everything outside the
// outermost braces is discarded first.
func Parse(raw string) (*Recipe, error) {
	startIndex := strings.Index(raw, "{")
	endIndex := strings.LastIndex(raw, "}")
	if startIndex == -1 || endIndex == -1 || startIndex > endIndex {
		return nil, fmt.Errorf("could not find JSON object in response: %s", raw)
	}

	cleanJSON := raw[startIndex : endIndex+1]

	var r Recipe
	if err := json.Unmarshal([]byte(cleanJSON), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w. Raw response: %s", err, cleanJSON)
	}

	if r.Title == "" || len(r.Ingredients) == 0 || len(r.Instructions) == 0 {
		return nil, fmt.Errorf("incomplete recipe in response: %s", cleanJSON)
	}

	return &r, nil
}

// Fallback builds a templated recipe from the submitted ingredients, used
// when the generation model returns something unusable.
func Fallback(ingredients []string) *Recipe {
	main := "your ingredients"
	if len(ingredients) > 0 {
		main = ingredients[0]
	}

	return &Recipe{
		Title:       fmt.Sprintf("Simple %s stir-fry", main),
		Ingredients: append([]string{}, ingredients...),
		Instructions: []string{
			"Wash and chop all ingredients into bite-sized pieces.",
			"Heat a tablespoon of oil in a large pan over medium-high heat.",
			"Add the firmer ingredients first and cook for 3-4 minutes.",
			"Add the remaining ingredients and stir-fry for another 5 minutes.",
			"Season with salt and pepper to taste and serve hot.",
		},
		CookingTime: "20 minutes",
	}
}

// CacheKey derives a stable key for an ingredient set. Names are lowercased,
// trimmed, and sorted so that the same set always maps to the same entry.
func CacheKey(ingredients []string) string {
	normalized := make([]string, 0, len(ingredients))
	for _, name := range ingredients {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			normalized = append(normalized, name)
		}
	}
	sort.Strings(normalized)

	hash := sha256.Sum256([]byte(strings.Join(normalized, "\n")))
	return hex.EncodeToString(hash[:])
}
