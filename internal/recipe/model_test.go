package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	raw := "```json\n{\"title\":\"Tomato Rice\",\"ingredients\":[\"tomato\",\"rice\"],\"instructions\":[\"Cook rice\",\"Stir in tomato\"],\"cookingTime\":\"25 minutes\"}\n```"

	r, err := Parse(raw)
	assert.NoError(t, err)
	assert.Equal(t, "Tomato Rice", r.Title)
	assert.Equal(t, []string{"tomato", "rice"}, r.Ingredients)
	assert.Len(t, r.Instructions, 2)
	assert.Equal(t, "25 minutes", r.CookingTime)
}

func TestParse_ProseWrapped(t *testing.T) {
	raw := `Sure! Here is a recipe for you: {"title":"Omelette","ingredients":["egg","butter"],"instructions":["Whisk eggs","Fry in butter"],"cookingTime":"10 minutes"} Enjoy!`

	r, err := Parse(raw)
	assert.NoError(t, err)
	assert.Equal(t, "Omelette", r.Title)
}

func TestParse_NoJSON(t *testing.T) {
	_, err := Parse("I am sorry, I cannot help with that.")
	assert.Error(t, err)
}

func TestParse_IncompleteRecipe(t *testing.T) {
	_, err := Parse(`{"title":"","ingredients":[],"instructions":[]}`)
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	r := Fallback([]string{"tomato", "rice"})

	assert.NotEmpty(t, r.Title)
	assert.Contains(t, r.Title, "tomato")
	assert.Equal(t, []string{"tomato", "rice"}, r.Ingredients)
	assert.NotEmpty(t, r.Instructions)
	assert.NotEmpty(t, r.CookingTime)
}

func TestFallback_NoIngredients(t *testing.T) {
	r := Fallback(nil)

	assert.NotEmpty(t, r.Title)
	assert.NotEmpty(t, r.Instructions)
}

func TestCacheKey(t *testing.T) {
	key := CacheKey([]string{"tomato", "rice"})

	// Order, case, and surrounding whitespace do not change the key.
	assert.Equal(t, key, CacheKey([]string{"rice", "tomato"}))
	assert.Equal(t, key, CacheKey([]string{" Rice ", "TOMATO"}))

	// A different set maps elsewhere.
	assert.NotEqual(t, key, CacheKey([]string{"tomato"}))
	assert.NotEqual(t, key, CacheKey([]string{"tomato", "rice", "egg"}))
}
