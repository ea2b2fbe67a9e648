package store

import (
	"context"
	"time"

	"cvstudio/internal/types"
)

// StoredDocument is a persisted resume or cover letter with its metadata.
// Content is the full document JSON; listings omit it to keep the list
// query cheap.
type StoredDocument struct {
	ID        string             `json:"id"`
	UserID    string             `json:"-"`
	Kind      types.DocumentKind `json:"kind"`
	Title     string             `json:"title"`
	Content   types.Document     `json:"content"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// DocumentStore persists user documents. All operations are scoped to the
// owning user; a document id from another user behaves as not found.
type DocumentStore interface {
	Create(ctx context.Context, doc *StoredDocument) error
	Get(ctx context.Context, userID, id string) (*StoredDocument, error)
	// List returns the user's documents newest-first by update time,
	// without content payloads.
	List(ctx context.Context, userID string) ([]StoredDocument, error)
	Update(ctx context.Context, doc *StoredDocument) error
	Delete(ctx context.Context, userID, id string) error
	Close()
}

// UsageTracker records product usage events. Tracking must never break a
// user-facing operation, so implementations log failures instead of
// returning them.
type UsageTracker interface {
	Track(ctx context.Context, userID, event string)
}
