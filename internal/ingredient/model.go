package ingredient

// Ingredient represents a detected food item with its model confidence.
type Ingredient struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Detection is the full result of running the vision pipelines on one image.
type Detection struct {
	ImageHash   string       `json:"image_hash" db:"image_hash"`
	Ingredients []Ingredient `json:"ingredients"`
	Caption     string       `json:"caption,omitempty" db:"caption"`
	ImagePath   string       `json:"image_path,omitempty" db:"image_path"`
}
