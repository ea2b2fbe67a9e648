package store

import (
	"context"
	"log/slog"
	"testing"

	"cvstudio/internal/conversation"
	apperrors "cvstudio/internal/errors"
	"cvstudio/internal/types"
)

type fakeStore struct {
	created []*StoredDocument
	updated []*StoredDocument
}

func (f *fakeStore) Create(ctx context.Context, doc *StoredDocument) error {
	doc.ID = "doc-1"
	f.created = append(f.created, doc)
	return nil
}

func (f *fakeStore) Update(ctx context.Context, doc *StoredDocument) error {
	f.updated = append(f.updated, doc)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, userID, id string) (*StoredDocument, error) {
	return nil, apperrors.NewStorageError(apperrors.ErrCodeNotFound, "not found", nil)
}

func (f *fakeStore) List(ctx context.Context, userID string) ([]StoredDocument, error) {
	return nil, nil
}

func (f *fakeStore) Delete(ctx context.Context, userID, id string) error { return nil }
func (f *fakeStore) Close()                                              {}

func TestSaveSessionCreatesThenUpdates(t *testing.T) {
	fs := &fakeStore{}
	saver := NewSessionSaver(fs, apperrors.NewLogger(slog.LevelError))
	sess := conversation.NewSession("user-1", types.KindResume, "")

	if err := saver.SaveSession(context.Background(), sess); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if len(fs.created) != 1 {
		t.Fatalf("first save should create, got %d creates", len(fs.created))
	}
	if sess.DocumentID() != "doc-1" {
		t.Errorf("session should remember its document id, got %q", sess.DocumentID())
	}

	if err := saver.SaveSession(context.Background(), sess); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if len(fs.updated) != 1 || fs.updated[0].ID != "doc-1" {
		t.Errorf("second save should update the same document")
	}
}

func TestDocumentTitleFallsBackWhenAnonymous(t *testing.T) {
	sess := conversation.NewSession("user-1", types.KindCoverLetter, "")
	if got := documentTitle(sess); got != "Untitled coverLetter" {
		t.Errorf("title = %q", got)
	}
}
