package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"cvstudio/internal/ai"
	apperrors "cvstudio/internal/errors"
	"cvstudio/internal/prompt"
	"cvstudio/internal/types"
)

// fakeGateway returns scripted replies in order, or blocks until released
// when blockCh is set.
type fakeGateway struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	blockCh chan struct{}
}

func (f *fakeGateway) Generate(ctx context.Context, req ai.GenerateRequest) (string, *ai.TokenUsage, error) {
	if f.blockCh != nil {
		select {
		case <-f.blockCh:
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++

	if i < len(f.errs) && f.errs[i] != nil {
		return "", nil, f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], &ai.TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}, nil
	}
	return `{"extractedData":{},"missingInfo":[],"questions":[]}`, nil, nil
}

type recordingSaver struct {
	mu    sync.Mutex
	saves int
}

func (r *recordingSaver) SaveSession(ctx context.Context, sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	return nil
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func testLogger() *apperrors.Logger {
	return apperrors.NewLogger(slog.LevelError)
}

func TestHandleMessageMergesAndAsksQuestions(t *testing.T) {
	gw := &fakeGateway{replies: []string{
		`{"extractedData":{"personalInfo":{"name":"Jane Doe"},"skills":["Go"]},"missingInfo":["email"],"questions":["What is your email address?"],"confidence":0.9}`,
	}}
	c := NewController(gw, prompt.NewBuilder(), nil, testLogger(), Options{})
	sess := NewSession("user-1", types.KindResume, "")

	res, err := c.HandleMessage(context.Background(), sess, "I'm Jane Doe and I write Go")
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}

	if res.Document.PersonalInfo.Name != "Jane Doe" {
		t.Errorf("name = %q, want Jane Doe", res.Document.PersonalInfo.Name)
	}
	if len(res.Document.Skills) != 1 || res.Document.Skills[0] != "Go" {
		t.Errorf("skills = %v, want [Go]", res.Document.Skills)
	}
	if res.Reply != "What is your email address?" {
		t.Errorf("reply = %q, want the model's question", res.Reply)
	}
	if res.Confidence == nil || *res.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", res.Confidence)
	}

	msgs := sess.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript has %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != types.RoleUser || msgs[1].Role != types.RoleAssistant {
		t.Errorf("transcript roles = %v, %v", msgs[0].Role, msgs[1].Role)
	}
	if sess.State() != StateIdle {
		t.Errorf("state = %v, want idle after turn", sess.State())
	}
}

func TestHandleMessageGenericAckWhenNoQuestions(t *testing.T) {
	gw := &fakeGateway{replies: []string{
		`{"extractedData":{"summary":"Engineer"},"missingInfo":[],"questions":[]}`,
	}}
	c := NewController(gw, prompt.NewBuilder(), nil, testLogger(), Options{})
	sess := NewSession("user-1", types.KindResume, "")

	res, err := c.HandleMessage(context.Background(), sess, "I'm an engineer")
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if res.Reply != ackReply {
		t.Errorf("reply = %q, want generic acknowledgement", res.Reply)
	}
}

func TestUnparseableReplySurfacesRawText(t *testing.T) {
	raw := "Sure! Tell me more about your work history."
	gw := &fakeGateway{replies: []string{raw}}
	c := NewController(gw, prompt.NewBuilder(), nil, testLogger(), Options{})
	sess := NewSession("user-1", types.KindResume, "")
	sess.document = types.Document{Summary: "existing"}

	res, err := c.HandleMessage(context.Background(), sess, "hello")
	if err != nil {
		t.Fatalf("degraded turn should not return an error, got %v", err)
	}
	if res.Reply != raw {
		t.Errorf("reply = %q, want raw model text", res.Reply)
	}
	if res.Document.Summary != "existing" {
		t.Errorf("document changed on unparseable reply: %+v", res.Document)
	}

	msgs := sess.Messages()
	if msgs[len(msgs)-1].Content != raw {
		t.Errorf("transcript should carry the raw reply")
	}
}

func TestTransportFailureAppendsFallback(t *testing.T) {
	gw := &fakeGateway{errs: []error{
		apperrors.NewTransportError(apperrors.ErrCodeModelUnreachable, "down", nil),
	}}
	c := NewController(gw, prompt.NewBuilder(), nil, testLogger(), Options{})
	sess := NewSession("user-1", types.KindResume, "")

	_, err := c.HandleMessage(context.Background(), sess, "hello")
	if !apperrors.IsTransport(err) {
		t.Fatalf("want transport error, got %v", err)
	}

	msgs := sess.Messages()
	if len(msgs) != 2 || msgs[1].Content != fallbackReply {
		t.Errorf("transcript should end with the fallback reply, got %v", msgs)
	}
	if sess.State() != StateIdle {
		t.Errorf("state = %v, want idle so the user can retry", sess.State())
	}
}

func TestTurnsAreSerialized(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{blockCh: release}
	c := NewController(gw, prompt.NewBuilder(), nil, testLogger(), Options{})
	sess := NewSession("user-1", types.KindResume, "")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.HandleMessage(context.Background(), sess, "first")
	}()

	// Wait until the first turn is in flight
	deadline := time.After(2 * time.Second)
	for sess.State() != StateAwaitingReply {
		select {
		case <-deadline:
			t.Fatal("first turn never reached awaitingReply")
		case <-time.After(5 * time.Millisecond):
		}
	}

	_, err := c.HandleMessage(context.Background(), sess, "second")
	var appErr *apperrors.AppError
	if !apperrors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeTurnInProgress {
		t.Fatalf("concurrent turn should be rejected, got %v", err)
	}

	close(release)
	<-done
}

func TestCloseDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{
		blockCh: release,
		replies: []string{`{"extractedData":{"summary":"late"},"questions":[]}`},
	}
	c := NewController(gw, prompt.NewBuilder(), nil, testLogger(), Options{})
	sess := NewSession("user-1", types.KindResume, "")

	type outcome struct {
		res *TurnResult
		err error
	}
	outCh := make(chan outcome, 1)
	go func() {
		res, err := c.HandleMessage(context.Background(), sess, "hello")
		outCh <- outcome{res, err}
	}()

	deadline := time.After(2 * time.Second)
	for sess.State() != StateAwaitingReply {
		select {
		case <-deadline:
			t.Fatal("turn never reached awaitingReply")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := c.Close(context.Background(), sess); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	close(release)

	out := <-outCh
	var appErr *apperrors.AppError
	if !apperrors.As(out.err, &appErr) || appErr.Code != apperrors.ErrCodeStaleTurn {
		t.Fatalf("stale result should be discarded, got res=%v err=%v", out.res, out.err)
	}
	if doc := sess.Document(); doc.Summary != "" {
		t.Errorf("stale result leaked into the document: %+v", doc)
	}
}

func TestClosedSessionRejectsTurns(t *testing.T) {
	c := NewController(&fakeGateway{}, prompt.NewBuilder(), nil, testLogger(), Options{})
	sess := NewSession("user-1", types.KindResume, "")

	if err := c.Close(context.Background(), sess); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	_, err := c.HandleMessage(context.Background(), sess, "hello")
	var appErr *apperrors.AppError
	if !apperrors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeSessionClosed {
		t.Fatalf("closed session should reject turns, got %v", err)
	}
}

func TestHandleFilesContinuesPastFailures(t *testing.T) {
	gw := &fakeGateway{
		replies: []string{
			`{"extractedData":{"skills":["Go"]},"questions":[]}`,
			"", // slot taken by the error below
			`{"extractedData":{"skills":["SQL"]},"questions":[]}`,
		},
		errs: []error{
			nil,
			apperrors.NewTransportError(apperrors.ErrCodeModelUnreachable, "down", nil),
			nil,
		},
	}
	c := NewController(gw, prompt.NewBuilder(), nil, testLogger(), Options{})
	sess := NewSession("user-1", types.KindResume, "")

	results := c.HandleFiles(context.Background(), sess, []FileInput{
		{Name: "a.txt", Text: "golang work"},
		{Name: "b.txt", Text: "broken"},
		{Name: "c.txt", Text: "database work"},
	})

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy files should succeed: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Errorf("failed file should carry its error")
	}

	doc := sess.Document()
	if len(doc.Skills) != 2 {
		t.Errorf("skills = %v, want both surviving files merged", doc.Skills)
	}
}

func TestAutosaveDebounces(t *testing.T) {
	gw := &fakeGateway{}
	saver := &recordingSaver{}
	c := NewController(gw, prompt.NewBuilder(), saver, testLogger(), Options{
		AutoSaveDebounce: 30 * time.Millisecond,
	})
	sess := NewSession("user-1", types.KindResume, "")

	for i := 0; i < 3; i++ {
		if _, err := c.HandleMessage(context.Background(), sess, fmt.Sprintf("turn %d", i)); err != nil {
			t.Fatalf("turn %d failed: %v", i, err)
		}
	}

	time.Sleep(100 * time.Millisecond)
	if got := saver.count(); got != 1 {
		t.Errorf("saves = %d, want rapid turns debounced into 1", got)
	}
}

func TestCloseFlushesSave(t *testing.T) {
	saver := &recordingSaver{}
	c := NewController(&fakeGateway{}, prompt.NewBuilder(), saver, testLogger(), Options{
		AutoSaveDebounce: time.Hour,
	})
	sess := NewSession("user-1", types.KindResume, "")

	if _, err := c.HandleMessage(context.Background(), sess, "hello"); err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if err := c.Close(context.Background(), sess); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if got := saver.count(); got != 1 {
		t.Errorf("saves = %d, want Close to flush exactly once", got)
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	c := NewController(&fakeGateway{}, prompt.NewBuilder(), nil, testLogger(), Options{})
	sess := NewSession("user-1", types.KindResume, "")

	_, err := c.HandleMessage(context.Background(), sess, "   ")
	if !apperrors.IsValidation(err) {
		t.Fatalf("want validation error for empty message, got %v", err)
	}
	if len(sess.Messages()) != 0 {
		t.Errorf("rejected turn should not touch the transcript")
	}
}

func TestCoverLetterTurnUsesJobDescription(t *testing.T) {
	var captured string
	gw := &capturingGateway{reply: `{"extractedData":{"motivation":"I care"},"questions":[]}`, prompt: &captured}
	c := NewController(gw, prompt.NewBuilder(), nil, testLogger(), Options{})
	sess := NewSession("user-1", types.KindCoverLetter, "Staff engineer at Initech")

	if _, err := c.HandleMessage(context.Background(), sess, "I want this job"); err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if !strings.Contains(captured, "Staff engineer at Initech") {
		t.Errorf("prompt should embed the session job description")
	}
}

type capturingGateway struct {
	reply  string
	prompt *string
}

func (g *capturingGateway) Generate(ctx context.Context, req ai.GenerateRequest) (string, *ai.TokenUsage, error) {
	*g.prompt = req.Prompt
	return g.reply, nil, nil
}
