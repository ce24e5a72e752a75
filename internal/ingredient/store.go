package ingredient

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for detection data operations.
type Store interface {
	GetDetection(ctx context.Context, imageHash string) (*Detection, error)
	SaveDetection(ctx context.Context, detection *Detection) error
	Ping(ctx context.Context) error
}

// PostgresStore implements the Store interface for PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new PostgresStore over an existing connection.
func NewPostgresStore(db *sqlx.DB) (*PostgresStore, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS detections (
		image_hash TEXT PRIMARY KEY,
		ingredients JSONB,
		caption TEXT,
		image_path TEXT
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create detections table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// GetDetection retrieves a cached detection by image hash. Returns nil when
// the image has not been seen before.
func (s *PostgresStore) GetDetection(ctx context.Context, imageHash string) (*Detection, error) {
	var d Detection
	var ingredientsJSON []byte

	err := s.db.QueryRowContext(ctx,
		"SELECT image_hash, ingredients, caption, image_path FROM detections WHERE image_hash = $1",
		imageHash,
	).Scan(&d.ImageHash, &ingredientsJSON, &d.Caption, &d.ImagePath)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get detection by hash: %w", err)
	}

	if err := json.Unmarshal(ingredientsJSON, &d.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
	}

	return &d, nil
}

// SaveDetection saves a detection to the database.
func (s *PostgresStore) SaveDetection(ctx context.Context, detection *Detection) error {
	ingredientsJSON, err := json.Marshal(detection.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO detections (image_hash, ingredients, caption, image_path) VALUES ($1, $2, $3, $4) ON CONFLICT (image_hash) DO UPDATE SET ingredients = $2, caption = $3, image_path = $4",
		detection.ImageHash,
		ingredientsJSON,
		detection.Caption,
		detection.ImagePath,
	)
	if err != nil {
		return fmt.Errorf("failed to save detection: %w", err)
	}

	return nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
