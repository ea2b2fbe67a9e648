package conversation

import (
	"sync"
	"time"

	"cvstudio/internal/types"

	"github.com/google/uuid"
)

// State describes where a session is in its turn cycle
type State string

const (
	// StateIdle means the session is ready to accept the next user turn
	StateIdle State = "idle"
	// StateAwaitingReply means a turn is in flight at the model endpoint
	StateAwaitingReply State = "awaitingReply"
	// StateClosed means the session was closed and accepts no further turns
	StateClosed State = "closed"
)

// Session is one conversational document build. All mutation goes through
// the controller; the session's own lock only guards snapshot reads against
// in-flight turns.
type Session struct {
	ID             string
	UserID         string
	Kind           types.DocumentKind
	JobDescription string

	CreatedAt time.Time
	UpdatedAt time.Time

	mu         sync.Mutex
	state      State
	seq        uint64
	documentID string
	document   types.Document
	messages   []types.Message

	// autosave bookkeeping, owned by the controller
	saveTimer *time.Timer
}

// NewSession creates an idle session for the given document kind. The job
// description is optional and only meaningful for cover letters.
func NewSession(userID string, kind types.DocumentKind, jobDescription string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             uuid.New().String(),
		UserID:         userID,
		Kind:           kind,
		JobDescription: jobDescription,
		CreatedAt:      now,
		UpdatedAt:      now,
		state:          StateIdle,
	}
}

// ResumeSession rebuilds a session around an already stored document so a
// user can keep refining it across visits.
func ResumeSession(userID, documentID string, kind types.DocumentKind, doc types.Document) *Session {
	s := NewSession(userID, kind, "")
	s.documentID = documentID
	s.document = doc
	return s
}

// DocumentID returns the stored document backing this session, or "" when
// the session has not been saved yet. The autosave goroutine writes it, so
// reads go through the lock.
func (s *Session) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentID
}

// SetDocumentID pins the session to its stored document after the first save
func (s *Session) SetDocumentID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documentID = id
}

// State returns the session's current turn-cycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Document returns a snapshot of the accumulated document
func (s *Session) Document() types.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// Messages returns a copy of the conversation transcript
func (s *Session) Messages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) appendMessage(role types.MessageRole, content string) {
	s.messages = append(s.messages, types.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	s.UpdatedAt = time.Now().UTC()
}
