// Package vault persists redaction mappings so text can be restored in a
// different process than the one that redacted it.
//
// Mapping entries contain the original sensitive values, so the entry list
// is encrypted at rest with AES-256-GCM and stored in SQLite. Each stored
// mapping carries the caller that produced it and a creation timestamp.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	veilotel "github.com/veil-sh/veil/internal/otel"
	"github.com/veil-sh/veil/internal/redact"
)

var (
	// ErrMappingNotFound is returned when a mapping ID does not exist.
	ErrMappingNotFound = errors.New("mapping not found")
	// ErrInvalidEncryptionKey is returned when the vault key is not exactly
	// 32 raw bytes or 64 hex characters (required for AES-256).
	ErrInvalidEncryptionKey = errors.New("invalid encryption key")
)

var tracer = veilotel.Tracer("github.com/veil-sh/veil/internal/vault")

// Store manages encrypted persisted mappings.
type Store struct {
	db  *sql.DB
	gcm cipher.AEAD
}

// Metadata is the public view of a stored mapping (no entry plaintext).
type Metadata struct {
	ID         string    `json:"id"`
	CallerID   string    `json:"caller_id"`
	EntryCount int       `json:"entry_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// New opens (creating if needed) a mapping vault backed by SQLite.
// encryptionKey must be exactly 32 raw bytes or 64 hex characters.
func New(dbPath, encryptionKey string) (*Store, error) {
	keyBytes, err := resolveEncryptionKey(encryptionKey)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening vault database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS mappings (
		id TEXT PRIMARY KEY,
		caller_id TEXT NOT NULL,
		entry_count INTEGER NOT NULL,
		encrypted_entries TEXT NOT NULL,
		nonce TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_mappings_caller ON mappings(caller_id);
	CREATE INDEX IF NOT EXISTS idx_mappings_created ON mappings(created_at);
	`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating vault schema: %w", err)
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &Store{db: db, gcm: gcm}, nil
}

// resolveEncryptionKey accepts 32 raw bytes or 64 hex characters.
func resolveEncryptionKey(key string) ([]byte, error) {
	if len(key) == 64 {
		decoded, err := hex.DecodeString(key)
		if err == nil {
			return decoded, nil
		}
	}
	if len(key) == 32 {
		return []byte(key), nil
	}
	return nil, fmt.Errorf("%w: need 32 raw bytes or 64 hex characters, got %d characters", ErrInvalidEncryptionKey, len(key))
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Save encrypts and persists a mapping, returning its generated ID.
func (s *Store) Save(ctx context.Context, callerID string, mapping redact.Mapping) (string, error) {
	ctx, span := tracer.Start(ctx, "vault.save")
	defer span.End()

	plaintext, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("encoding mapping: %w", err)
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	ciphertext := s.gcm.Seal(nil, nonce, plaintext, nil)

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO mappings (id, caller_id, entry_count, encrypted_entries, nonce, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, callerID, len(mapping),
		base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(nonce),
		time.Now().UTC(),
	)
	if err != nil {
		span.SetStatus(codes.Error, "insert failed")
		return "", fmt.Errorf("storing mapping: %w", err)
	}

	span.SetAttributes(
		attribute.String("vault.mapping_id", id),
		attribute.Int("vault.entry_count", len(mapping)),
	)
	return id, nil
}

// Load decrypts and returns the mapping with the given ID.
func (s *Store) Load(ctx context.Context, id string) (redact.Mapping, error) {
	ctx, span := tracer.Start(ctx, "vault.load")
	defer span.End()

	var encEntries, encNonce string
	err := s.db.QueryRowContext(ctx,
		`SELECT encrypted_entries, nonce FROM mappings WHERE id = ?`, id,
	).Scan(&encEntries, &encNonce)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading mapping: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encEntries)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(encNonce)
	if err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", err)
	}

	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting mapping: %w", err)
	}

	var mapping redact.Mapping
	if err := json.Unmarshal(plaintext, &mapping); err != nil {
		return nil, fmt.Errorf("decoding mapping: %w", err)
	}
	return mapping, nil
}

// Delete removes a stored mapping.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mappings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting mapping: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting mapping: %w", err)
	}
	if affected == 0 {
		return ErrMappingNotFound
	}
	return nil
}

// List returns metadata for stored mappings, newest first. An empty
// callerID lists all callers.
func (s *Store) List(ctx context.Context, callerID string) ([]Metadata, error) {
	query := `SELECT id, caller_id, entry_count, created_at FROM mappings`
	args := []interface{}{}
	if callerID != "" {
		query += ` WHERE caller_id = ?`
		args = append(args, callerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	defer rows.Close()

	var out []Metadata
	for rows.Next() {
		var m Metadata
		if err := rows.Scan(&m.ID, &m.CallerID, &m.EntryCount, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning mapping row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
