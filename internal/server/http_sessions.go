package server

import (
	"fmt"
	"net/http"
	"sync"

	"cvstudio/internal/conversation"
	apperrors "cvstudio/internal/errors"
)

// sessionRegistry tracks live conversation sessions by ID. Sessions are
// owned by the account that created them; lookups are always user-scoped.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*conversation.Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*conversation.Session)}
}

func (r *sessionRegistry) Add(sess *conversation.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = sess
}

// Get returns the session only when it belongs to the given user. A foreign
// session reads as not-found so IDs cannot be probed across accounts.
func (r *sessionRegistry) Get(userID, id string) (*conversation.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok || sess.UserID != userID {
		return nil, apperrors.NewStorageError(apperrors.ErrCodeNotFound,
			fmt.Sprintf("Session not found: %s", id), nil)
	}
	return sess, nil
}

func (r *sessionRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *sessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// sessionResponse snapshots a session for the wire
func sessionResponse(sess *conversation.Session) SessionResponse {
	return SessionResponse{
		ID:         sess.ID,
		Kind:       sess.Kind,
		State:      sess.State(),
		DocumentID: sess.DocumentID(),
		Document:   sess.Document(),
		Messages:   sess.Messages(),
	}
}

// createSessionHandler starts a new conversation. When documentId is set the
// stored document is loaded and the conversation resumes around it.
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if !req.Kind.Valid() {
		writeErrorResponse(w, "Invalid document kind",
			fmt.Sprintf("kind must be 'resume' or 'coverLetter', got %q", req.Kind), http.StatusBadRequest)
		return
	}

	userID := userIDFromContext(r.Context())

	var sess *conversation.Session
	if req.DocumentID != "" {
		stored, err := s.Store.Get(r.Context(), userID, req.DocumentID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		sess = conversation.ResumeSession(userID, stored.ID, stored.Kind, stored.Content)
		sess.JobDescription = req.JobDescription
	} else {
		sess = conversation.NewSession(userID, req.Kind, req.JobDescription)
	}

	s.sessions.Add(sess)
	s.Store.Track(r.Context(), userID, "session_started")

	writeJSONResponse(w, http.StatusCreated, sessionResponse(sess))
}

// getSessionHandler returns the current state of a conversation
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(userIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, sessionResponse(sess))
}

// closeSessionHandler ends a conversation, flushing any pending save. An
// in-flight turn is discarded rather than awaited.
func (s *Server) closeSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	sess, err := s.sessions.Get(userID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	controller := s.controller(sess.Kind)
	if err := controller.Close(r.Context(), sess); err != nil {
		s.Logger.LogError(err, "Final session save failed",
			"session_id", sess.ID)
	}

	s.sessions.Remove(sess.ID)
	s.Store.Track(r.Context(), userID, "session_closed")

	writeJSONResponse(w, http.StatusOK, sessionResponse(sess))
}
