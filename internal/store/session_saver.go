package store

import (
	"context"

	"cvstudio/internal/conversation"
	"cvstudio/internal/errors"
)

// SessionSaver adapts a DocumentStore to the conversation autosave hook.
// The first save of a session creates its document and pins the id back
// onto the session; later saves update in place.
type SessionSaver struct {
	store  DocumentStore
	logger *errors.Logger
}

// NewSessionSaver wires the autosave adapter
func NewSessionSaver(store DocumentStore, logger *errors.Logger) *SessionSaver {
	return &SessionSaver{store: store, logger: logger}
}

var _ conversation.Saver = (*SessionSaver)(nil)

// SaveSession persists the session's accumulated document
func (s *SessionSaver) SaveSession(ctx context.Context, sess *conversation.Session) error {
	doc := sess.Document()

	documentID := sess.DocumentID()
	if documentID == "" {
		stored := &StoredDocument{
			UserID:  sess.UserID,
			Kind:    sess.Kind,
			Title:   documentTitle(sess),
			Content: doc,
		}
		if err := s.store.Create(ctx, stored); err != nil {
			return err
		}
		sess.SetDocumentID(stored.ID)
		s.logger.Debug("Session document created",
			"session_id", sess.ID,
			"document_id", stored.ID)
		return nil
	}

	stored := &StoredDocument{
		ID:      documentID,
		UserID:  sess.UserID,
		Kind:    sess.Kind,
		Title:   documentTitle(sess),
		Content: doc,
	}
	return s.store.Update(ctx, stored)
}

// documentTitle derives a display title from the document contents
func documentTitle(sess *conversation.Session) string {
	doc := sess.Document()
	if doc.PersonalInfo.Name != "" {
		if sess.Kind.Valid() {
			return doc.PersonalInfo.Name + " - " + string(sess.Kind)
		}
		return doc.PersonalInfo.Name
	}
	return "Untitled " + string(sess.Kind)
}
