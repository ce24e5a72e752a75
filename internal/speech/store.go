package speech

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Clip is a record of a synthesized audio file.
type Clip struct {
	Filename  string    `json:"filename" db:"filename"`
	TextHash  string    `json:"text_hash" db:"text_hash"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Store defines the interface for audio clip records.
type Store interface {
	SaveClip(ctx context.Context, clip *Clip) error
	GetClipByTextHash(ctx context.Context, textHash string) (*Clip, error)
}

// HashText calculates the SHA256 hash of the text to synthesize.
func HashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// PostgresStore implements the Store interface for PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new PostgresStore over an existing connection.
func NewPostgresStore(db *sqlx.DB) (*PostgresStore, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS audio_clips (
		filename TEXT PRIMARY KEY,
		text_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS audio_clips_text_hash_idx ON audio_clips (text_hash);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create audio_clips table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// SaveClip records a synthesized audio file.
func (s *PostgresStore) SaveClip(ctx context.Context, clip *Clip) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audio_clips (filename, text_hash) VALUES ($1, $2) ON CONFLICT (filename) DO NOTHING",
		clip.Filename,
		clip.TextHash,
	)
	if err != nil {
		return fmt.Errorf("failed to save audio clip: %w", err)
	}
	return nil
}

// GetClipByTextHash returns the most recent clip for a text hash, or nil if
// the text has not been synthesized before.
func (s *PostgresStore) GetClipByTextHash(ctx context.Context, textHash string) (*Clip, error) {
	var clip Clip
	err := s.db.QueryRowContext(ctx,
		"SELECT filename, text_hash, created_at FROM audio_clips WHERE text_hash = $1 ORDER BY created_at DESC LIMIT 1",
		textHash,
	).Scan(&clip.Filename, &clip.TextHash, &clip.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get audio clip by text hash: %w", err)
	}
	return &clip, nil
}
