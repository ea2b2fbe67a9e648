package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cvstudio/internal/errors"
	"cvstudio/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied on startup. Statements are idempotent so repeated
// startups against the same database are safe.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id         UUID PRIMARY KEY,
    user_id    TEXT NOT NULL,
    kind       TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    content    JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_user_updated
    ON documents (user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS usage_events (
    id          BIGSERIAL PRIMARY KEY,
    user_id     TEXT NOT NULL,
    event_type  TEXT NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_usage_events_user
    ON usage_events (user_id, occurred_at DESC);

CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    display_name  TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS password_resets (
    token      UUID PRIMARY KEY,
    user_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    expires_at TIMESTAMPTZ NOT NULL,
    used       BOOLEAN NOT NULL DEFAULT false
);
`

// PostgresStore implements DocumentStore and UsageTracker on a pgx pool
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *errors.Logger
}

var _ DocumentStore = (*PostgresStore)(nil)
var _ UsageTracker = (*PostgresStore)(nil)

// NewPostgresStore connects the pool, verifies connectivity and applies
// the schema.
func NewPostgresStore(ctx context.Context, url string, maxConns int32, logger *errors.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"Invalid database URL", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to create database pool", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Database is unreachable", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to apply database schema", err)
	}

	logger.Info("Database connected", "max_conns", poolCfg.MaxConns)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Pool exposes the underlying pool for collaborating stores (auth)
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Create inserts a new document, assigning an id when the caller left it
// empty.
func (s *PostgresStore) Create(ctx context.Context, doc *StoredDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	content, err := json.Marshal(doc.Content)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeStorageFailed,
			"Failed to encode document content", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (id, user_id, kind, title, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.UserID, string(doc.Kind), doc.Title, content, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to save document", err)
	}
	return nil
}

// Get fetches one document scoped to its owner
func (s *PostgresStore) Get(ctx context.Context, userID, id string) (*StoredDocument, error) {
	var (
		doc     StoredDocument
		kind    string
		content []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, kind, title, content, created_at, updated_at
		 FROM documents WHERE id = $1 AND user_id = $2`,
		id, userID).Scan(&doc.ID, &doc.UserID, &kind, &doc.Title, &content, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NewStorageError(errors.ErrCodeNotFound,
			fmt.Sprintf("Document %s not found", id), nil)
	}
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to load document", err)
	}

	doc.Kind = types.DocumentKind(kind)
	if err := json.Unmarshal(content, &doc.Content); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Stored document content is corrupt", err)
	}
	return &doc, nil
}

// List returns document metadata newest-first by update time
func (s *PostgresStore) List(ctx context.Context, userID string) ([]StoredDocument, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, kind, title, created_at, updated_at
		 FROM documents WHERE user_id = $1
		 ORDER BY updated_at DESC`,
		userID)
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to list documents", err)
	}
	defer rows.Close()

	docs := []StoredDocument{}
	for rows.Next() {
		var (
			doc  StoredDocument
			kind string
		)
		if err := rows.Scan(&doc.ID, &doc.UserID, &kind, &doc.Title, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
				"Failed to scan document row", err)
		}
		doc.Kind = types.DocumentKind(kind)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to iterate document rows", err)
	}
	return docs, nil
}

// Update rewrites title and content and bumps the update timestamp
func (s *PostgresStore) Update(ctx context.Context, doc *StoredDocument) error {
	content, err := json.Marshal(doc.Content)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeStorageFailed,
			"Failed to encode document content", err)
	}
	doc.UpdatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET title = $1, content = $2, updated_at = $3
		 WHERE id = $4 AND user_id = $5`,
		doc.Title, content, doc.UpdatedAt, doc.ID, doc.UserID)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to update document", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewStorageError(errors.ErrCodeNotFound,
			fmt.Sprintf("Document %s not found", doc.ID), nil)
	}
	return nil
}

// Delete removes a document scoped to its owner
func (s *PostgresStore) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to delete document", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewStorageError(errors.ErrCodeNotFound,
			fmt.Sprintf("Document %s not found", id), nil)
	}
	return nil
}

// Track appends a usage event. Tracking failures are logged and dropped
// so they can never fail the user-facing operation that triggered them.
func (s *PostgresStore) Track(ctx context.Context, userID, event string) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO usage_events (user_id, event_type) VALUES ($1, $2)`,
		userID, event)
	if err != nil {
		s.logger.Warn("Usage tracking failed",
			"user_id", userID,
			"event", event,
			"error", err.Error())
	}
}

// Close releases the pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}
