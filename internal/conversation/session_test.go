package conversation

import (
	"sync"
	"testing"

	"cvstudio/internal/types"
)

func TestResumeSessionCarriesDocumentID(t *testing.T) {
	doc := types.Document{Summary: "existing"}
	sess := ResumeSession("user-1", "doc-42", types.KindResume, doc)

	if sess.DocumentID() != "doc-42" {
		t.Errorf("DocumentID() = %q, want doc-42", sess.DocumentID())
	}
	if sess.Document().Summary != "existing" {
		t.Errorf("resumed session should carry the stored document")
	}
}

// The autosave goroutine pins the document id onto the session while request
// goroutines snapshot it, so concurrent access must stay race-free.
func TestSessionDocumentIDConcurrentAccess(t *testing.T) {
	sess := NewSession("user-1", types.KindResume, "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sess.SetDocumentID("doc-1")
		}()
		go func() {
			defer wg.Done()
			_ = sess.DocumentID()
		}()
	}
	wg.Wait()

	if sess.DocumentID() != "doc-1" {
		t.Errorf("DocumentID() = %q after writes, want doc-1", sess.DocumentID())
	}
}
