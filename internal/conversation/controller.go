package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cvstudio/internal/ai"
	"cvstudio/internal/errors"
	"cvstudio/internal/merge"
	"cvstudio/internal/prompt"
	"cvstudio/internal/reply"
	"cvstudio/internal/types"
)

// fallbackReply is shown to the user when the model endpoint could not be
// reached at all. The transcript stays coherent even on hard failures.
const fallbackReply = "I had trouble processing that. Could you try again?"

// ackReply is used when extraction succeeded but the model asked nothing
const ackReply = "I've processed your information. Is there anything else you'd like to add?"

// Gateway is the slice of the AI service the controller needs. Satisfied
// by *ai.Service; tests substitute a scripted fake.
type Gateway interface {
	Generate(ctx context.Context, req ai.GenerateRequest) (string, *ai.TokenUsage, error)
}

// Saver persists a session's document. Autosave failures are logged and
// retried on the next debounce window, never surfaced to the user mid-turn.
type Saver interface {
	SaveSession(ctx context.Context, sess *Session) error
}

// TurnResult is what one accepted user turn produced
type TurnResult struct {
	Reply       string           `json:"reply"`
	Document    types.Document   `json:"document"`
	MissingInfo []string         `json:"missingInfo,omitempty"`
	Questions   []string         `json:"questions,omitempty"`
	Confidence  *float64         `json:"confidence,omitempty"`
	Usage       *ai.TokenUsage   `json:"-"`
	State       State            `json:"state"`
}

// FileInput is one uploaded file queued for extraction
type FileInput struct {
	Name       string
	Text       string
	Attachment *types.Attachment
}

// FileResult pairs a queued file with its extraction outcome. A failed
// file carries its error; the rest of the batch still runs.
type FileResult struct {
	Name   string
	Result *TurnResult
	Err    error
}

// Options tunes controller behavior. Zero values fall back to defaults.
type Options struct {
	TurnTimeout      time.Duration
	AutoSaveDebounce time.Duration
}

const (
	defaultTurnTimeout      = 30 * time.Second
	defaultAutoSaveDebounce = 2 * time.Second
)

// Controller drives the extraction loop: it serializes turns per session,
// builds prompts, calls the model gateway, parses replies and merges the
// extracted fields into the session document. Model failures degrade to
// fallback transcript entries instead of corrupting session state.
type Controller struct {
	gateway  Gateway
	builder  *prompt.Builder
	saver    Saver
	logger   *errors.Logger
	timeout  time.Duration
	debounce time.Duration
}

// NewController wires a controller. saver may be nil, which disables
// autosave (the CLI path saves explicitly).
func NewController(gateway Gateway, builder *prompt.Builder, saver Saver, logger *errors.Logger, opts Options) *Controller {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = defaultTurnTimeout
	}
	if opts.AutoSaveDebounce <= 0 {
		opts.AutoSaveDebounce = defaultAutoSaveDebounce
	}
	return &Controller{
		gateway:  gateway,
		builder:  builder,
		saver:    saver,
		logger:   logger,
		timeout:  opts.TurnTimeout,
		debounce: opts.AutoSaveDebounce,
	}
}

// HandleMessage runs one user turn. Turns are strictly serialized: a call
// while another turn is awaiting its reply is rejected rather than queued,
// so the document can never see interleaved merges.
func (c *Controller) HandleMessage(ctx context.Context, sess *Session, rawInput string) (*TurnResult, error) {
	return c.runTurn(ctx, sess, rawInput, nil)
}

// HandleAttachment runs one turn for a binary upload (PDF or image). The
// caption text rides along as the turn's user message.
func (c *Controller) HandleAttachment(ctx context.Context, sess *Session, caption string, att *types.Attachment) (*TurnResult, error) {
	return c.runTurn(ctx, sess, caption, att)
}

// HandleFiles processes a batch of uploads sequentially, one turn each. A
// failure on one file is recorded in its slot and the remaining files still
// run; the batch is never cancelled part-way.
func (c *Controller) HandleFiles(ctx context.Context, sess *Session, files []FileInput) []FileResult {
	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		var (
			res *TurnResult
			err error
		)
		if f.Attachment != nil {
			res, err = c.HandleAttachment(ctx, sess, f.Text, f.Attachment)
		} else {
			res, err = c.HandleMessage(ctx, sess, f.Text)
		}
		if err != nil {
			c.logger.Warn("File extraction failed, continuing batch",
				"session_id", sess.ID,
				"file", f.Name,
				"error", err.Error())
		}
		results = append(results, FileResult{Name: f.Name, Result: res, Err: err})
	}
	return results
}

func (c *Controller) runTurn(ctx context.Context, sess *Session, rawInput string, att *types.Attachment) (*TurnResult, error) {
	if strings.TrimSpace(rawInput) == "" && att == nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput,
			"Message content is empty", nil)
	}

	seq, snapshot, err := c.beginTurn(sess, rawInput, att)
	if err != nil {
		return nil, err
	}

	userPrompt, err := c.builder.Build(sess.Kind, rawInput, snapshot, sess.JobDescription)
	if err != nil {
		c.abortTurn(sess, seq)
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rawReply, usage, genErr := c.gateway.Generate(callCtx, ai.GenerateRequest{
		Prompt:       userPrompt,
		SystemPrompt: c.builder.System(sess.Kind),
		Attachment:   att,
	})

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// A result arriving after Close (or after a newer turn superseded this
	// one) must not touch the document.
	if sess.state == StateClosed || sess.seq != seq {
		c.logger.Debug("Discarding stale turn result",
			"session_id", sess.ID,
			"turn", seq,
			"current_turn", sess.seq)
		return nil, errors.NewValidationError(errors.ErrCodeStaleTurn,
			"Turn result arrived after the session moved on", nil)
	}
	sess.state = StateIdle

	if genErr != nil {
		sess.appendMessage(types.RoleAssistant, fallbackReply)
		return nil, genErr
	}

	result, parseErr := reply.Parse(rawReply)
	if parseErr != nil {
		// Degraded turn: surface the raw reply verbatim, leave the
		// document untouched so nothing half-parsed leaks into it.
		c.logger.Warn("Model reply was not parseable, surfacing raw text",
			"session_id", sess.ID,
			"turn", seq,
			"reply_length", len(rawReply))
		sess.appendMessage(types.RoleAssistant, rawReply)
		return &TurnResult{
			Reply:    rawReply,
			Document: sess.document,
			State:    sess.state,
		}, nil
	}

	sess.document = merge.Documents(sess.document, result.ExtractedFields)

	replyText := ackReply
	if len(result.Questions) > 0 {
		replyText = strings.Join(result.Questions, "\n")
	}
	sess.appendMessage(types.RoleAssistant, replyText)

	c.scheduleSave(sess)

	if usage != nil {
		c.logger.Debug("Turn completed",
			"session_id", sess.ID,
			"turn", seq,
			"input_tokens", usage.InputTokens,
			"output_tokens", usage.OutputTokens)
	}

	return &TurnResult{
		Reply:       replyText,
		Document:    sess.document,
		MissingInfo: result.MissingInfo,
		Questions:   result.Questions,
		Confidence:  result.Confidence,
		Usage:       usage,
		State:       sess.state,
	}, nil
}

// beginTurn transitions Idle -> AwaitingReply, records the user message and
// hands back the turn sequence plus a document snapshot for the prompt.
func (c *Controller) beginTurn(sess *Session, rawInput string, att *types.Attachment) (uint64, types.Document, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch sess.state {
	case StateClosed:
		return 0, types.Document{}, errors.NewValidationError(errors.ErrCodeSessionClosed,
			"Session is closed", nil)
	case StateAwaitingReply:
		return 0, types.Document{}, errors.NewValidationError(errors.ErrCodeTurnInProgress,
			"A turn is already awaiting its reply", nil)
	}

	sess.state = StateAwaitingReply
	sess.seq++

	content := rawInput
	if att != nil && strings.TrimSpace(content) == "" {
		content = fmt.Sprintf("[uploaded %s attachment]", att.MIMEType)
	}
	sess.appendMessage(types.RoleUser, content)

	return sess.seq, sess.document, nil
}

// abortTurn rolls the state machine back when a turn fails before the
// model call is even issued.
func (c *Controller) abortTurn(sess *Session, seq uint64) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.seq == seq && sess.state == StateAwaitingReply {
		sess.state = StateIdle
	}
}

// Close ends the session. Any in-flight turn result is discarded by the
// stale-turn guard, and a final save is flushed synchronously.
func (c *Controller) Close(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	if sess.state == StateClosed {
		sess.mu.Unlock()
		return nil
	}
	sess.state = StateClosed
	sess.seq++
	if sess.saveTimer != nil {
		sess.saveTimer.Stop()
		sess.saveTimer = nil
	}
	sess.mu.Unlock()

	return c.flush(ctx, sess)
}

// Flush persists the session document immediately, bypassing the debounce
func (c *Controller) Flush(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	if sess.saveTimer != nil {
		sess.saveTimer.Stop()
		sess.saveTimer = nil
	}
	sess.mu.Unlock()
	return c.flush(ctx, sess)
}

func (c *Controller) flush(ctx context.Context, sess *Session) error {
	if c.saver == nil {
		return nil
	}
	if err := c.saver.SaveSession(ctx, sess); err != nil {
		c.logger.LogError(err, "Session save failed", "session_id", sess.ID)
		return err
	}
	return nil
}

// scheduleSave debounces autosave: rapid successive turns collapse into a
// single write once the session quiets down. Caller holds sess.mu.
func (c *Controller) scheduleSave(sess *Session) {
	if c.saver == nil {
		return
	}
	if sess.saveTimer != nil {
		sess.saveTimer.Stop()
	}
	sess.saveTimer = time.AfterFunc(c.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.saver.SaveSession(ctx, sess); err != nil {
			c.logger.LogError(err, "Autosave failed", "session_id", sess.ID)
		}
	})
}
