package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"campusvoice/internal/domain"
	"campusvoice/internal/ports"
)

var (
	ErrEmptyQuestion     = errors.New("question cannot be empty")
	ErrSpeechUnavailable = errors.New("speech capture is not available")
	ErrNoPendingResponse = errors.New("no response is pending")
)

const (
	greetingText       = "Hi! How can I help you today?"
	stoppedText        = "[Response stopped]"
	networkFailureText = "Sorry, I couldn't connect."
	timeoutFailureText = "Sorry, the response timed out."
	historyFailureText = "Sorry, I couldn't load this conversation."
	micDeniedText      = "Microphone access was denied. Please allow microphone use and try again."
	micNoSpeechText    = "I didn't catch that. Could you try again?"
	micFailureText     = "Sorry, voice capture failed. Please try again or type your question."
	rejectedTextPrefix = "Sorry, an error occurred: "
)

// Config controls conversation behavior.
type Config struct {
	// AskTimeout bounds one answering-service call. A request past the
	// deadline is reported as a timeout failure in the transcript.
	AskTimeout time.Duration
	// FetchTimeout bounds catalog and history fetches.
	FetchTimeout time.Duration
}

// Conversation is the top-level controller for one chat surface: it owns
// the transcript and the active session, drives the request coordinator,
// and attaches speech capture and playback to the message flow.
type Conversation struct {
	speechIn  ports.SpeechInput
	speechOut ports.SpeechOutput
	tokens    ports.TokenStore
	events    ports.EventSink
	cfg       Config

	coord   *coordinator
	catalog *sessionCatalog
	history historyLoader

	mu         sync.Mutex
	state      domain.ConversationState
	transcript []domain.Message
	hydration  uint64
	listening  bool
	now        func() time.Time
}

func NewConversation(
	service ports.AnswerService,
	speechIn ports.SpeechInput,
	speechOut ports.SpeechOutput,
	tokens ports.TokenStore,
	events ports.EventSink,
	cfg Config,
) *Conversation {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}

	c := &Conversation{
		speechIn:  speechIn,
		speechOut: speechOut,
		tokens:    tokens,
		events:    events,
		cfg:       cfg,
		coord:     newCoordinator(service, cfg.AskTimeout),
		catalog:   newSessionCatalog(service, events, cfg.FetchTimeout),
		history:   historyLoader{service: service},
		state:     domain.StateIdle,
		now:       time.Now,
	}
	c.coord.deliver = c.finishAsk
	c.coord.onAuthExpired = c.handleAuthExpired
	c.catalog.onAuthExpired = c.handleAuthExpired
	c.transcript = []domain.Message{c.greeting()}
	return c
}

// Submit appends the user's message and dispatches it to the answering
// service. The user message is visible before the request goes out; a
// submit while a response is pending supersedes the earlier request.
func (c *Conversation) Submit(text string) error {
	question := strings.TrimSpace(text)
	if question == "" {
		return ErrEmptyQuestion
	}

	userMsg := domain.Message{Sender: domain.SenderUser, Text: question, Timestamp: c.now()}

	c.mu.Lock()
	sessionID := c.catalog.Active()
	c.transcript = append(c.transcript, userMsg)
	c.state = domain.StateAwaitingResponse
	c.mu.Unlock()

	c.events.MessageAppended(userMsg)
	c.events.StateChanged(domain.StateAwaitingResponse, domain.ReasonAwaitingResponse)

	c.coord.send(question, sessionID)
	return nil
}

// ActivateMic starts one voice capture. A captured utterance is submitted
// exactly as typed text would be. No-op while already listening.
func (c *Conversation) ActivateMic() error {
	if c.speechIn == nil || !c.speechIn.Available() {
		return ErrSpeechUnavailable
	}

	c.mu.Lock()
	if c.listening || c.state != domain.StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.listening = true
	c.state = domain.StateListening
	c.mu.Unlock()

	c.events.StateChanged(domain.StateListening, domain.ReasonListening)

	go c.runCapture()
	return nil
}

func (c *Conversation) runCapture() {
	text, err := c.speechIn.Capture(context.Background())

	c.mu.Lock()
	c.listening = false
	interrupted := c.state != domain.StateListening
	if err != nil && !interrupted {
		c.state = domain.StateIdle
	}
	c.mu.Unlock()

	if interrupted {
		// The session switched out from under the capture; a failure
		// has nowhere sensible to land anymore.
		if err == nil && strings.TrimSpace(text) != "" {
			_ = c.Submit(text)
		}
		return
	}

	if err != nil {
		c.appendBotMessage(captureFailureText(domain.CaptureReasonOf(err)))
		c.events.ConversationError(domain.ErrorCodeSpeech, err.Error())
		c.events.StateChanged(domain.StateIdle, domain.ReasonCaptureFailed)
		return
	}

	if strings.TrimSpace(text) == "" {
		c.mu.Lock()
		c.state = domain.StateIdle
		c.mu.Unlock()
		c.appendBotMessage(captureFailureText(domain.CaptureNoSpeech))
		c.events.StateChanged(domain.StateIdle, domain.ReasonCaptureFailed)
		return
	}

	_ = c.Submit(text)
}

// Cancel stops the pending response. The request is superseded locally;
// whatever the service eventually returns for it is discarded.
func (c *Conversation) Cancel() error {
	stopMsg := domain.Message{Sender: domain.SenderBot, Text: stoppedText, Timestamp: c.now()}

	c.mu.Lock()
	if c.state != domain.StateAwaitingResponse {
		c.mu.Unlock()
		return ErrNoPendingResponse
	}
	c.coord.invalidate()
	c.transcript = append(c.transcript, stopMsg)
	c.state = domain.StateIdle
	c.mu.Unlock()

	c.events.MessageAppended(stopMsg)
	c.events.StateChanged(domain.StateIdle, domain.ReasonResponseStopped)
	return nil
}

// SwitchSession makes the given session active and replaces the
// transcript wholesale. An empty id starts a fresh, unassigned
// conversation seeded with the greeting. A pending request for the old
// session is superseded first, so its late result can never land in the
// new session's transcript.
func (c *Conversation) SwitchSession(sessionID string) {
	c.mu.Lock()
	c.coord.invalidate()
	c.catalog.Select(sessionID)
	c.hydration++
	generation := c.hydration
	c.state = domain.StateIdle
	c.listening = false
	if sessionID == "" {
		c.transcript = []domain.Message{c.greeting()}
	}
	transcript := c.snapshotLocked()
	c.mu.Unlock()

	c.events.ActiveSessionChanged(sessionID)
	c.events.StateChanged(domain.StateIdle, domain.ReasonSessionSwitched)

	if sessionID == "" {
		c.events.TranscriptReplaced(transcript)
		return
	}

	go c.hydrate(sessionID, generation)
}

func (c *Conversation) hydrate(sessionID string, generation uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FetchTimeout)
	defer cancel()

	transcript, err := c.history.Fetch(ctx, sessionID)
	if err != nil && errors.Is(err, domain.ErrAuthExpired) {
		c.handleAuthExpired()
		return
	}

	c.mu.Lock()
	if c.hydration != generation {
		c.mu.Unlock()
		return
	}
	if err != nil {
		// Stale content must not stay visible: empty transcript plus a
		// diagnostic beats showing the previous session's messages.
		c.transcript = []domain.Message{{Sender: domain.SenderBot, Text: historyFailureText, Timestamp: c.now()}}
	} else {
		c.transcript = transcript
	}
	replaced := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		c.events.ConversationError(domain.ErrorCodeHistory, err.Error())
	}
	c.events.TranscriptReplaced(replaced)
}

// ListSessions refreshes the session catalog from the answering service.
func (c *Conversation) ListSessions(ctx context.Context) ([]domain.Session, error) {
	return c.catalog.Refresh(ctx)
}

// Sessions returns the last-fetched catalog without a network call.
func (c *Conversation) Sessions() []domain.Session {
	return c.catalog.Snapshot()
}

// Transcript returns a copy of the active session's transcript.
func (c *Conversation) Transcript() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Status reports the current state for the presentation layer.
func (c *Conversation) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Status{
		State:     c.state,
		Active:    c.state != domain.StateIdle,
		SessionID: c.catalog.Active(),
	}
}

// finishAsk receives every answering-service completion. The staleness
// check runs under the conversation lock so a cancel or session switch
// that happened after the coordinator released the outcome still wins.
func (c *Conversation) finishAsk(out askOutcome) {
	c.mu.Lock()
	if !c.coord.stillCurrent(out.token) {
		c.mu.Unlock()
		return
	}
	c.coord.finish(out.token)

	var botMsg domain.Message
	var reason domain.StateReason
	adopted := ""
	speak := false

	if out.err != nil {
		botMsg = domain.Message{Sender: domain.SenderBot, Text: failureText(out.err), Timestamp: c.now()}
		reason = domain.ReasonResponseFailed
	} else {
		botMsg = domain.Message{Sender: domain.SenderBot, Text: out.result.Answer, Timestamp: c.now()}
		reason = domain.ReasonResponseArrived
		speak = true
		if out.result.NewSessionID != "" && c.catalog.Active() == "" {
			adopted = out.result.NewSessionID
		}
	}

	c.transcript = append(c.transcript, botMsg)
	c.state = domain.StateIdle
	c.mu.Unlock()

	c.events.MessageAppended(botMsg)
	if adopted != "" {
		c.catalog.Adopt(adopted)
		c.events.ActiveSessionChanged(adopted)
	}
	if out.err != nil {
		c.events.ConversationError(failureCode(out.err), out.err.Error())
	}
	c.events.StateChanged(domain.StateIdle, reason)

	// Playback comes strictly after the message is appended and is never
	// awaited; playback failures stay inside the speech port.
	if speak && c.speechOut != nil {
		c.speechOut.Speak(out.result.Answer)
	}
}

func (c *Conversation) handleAuthExpired() {
	if c.tokens != nil {
		c.tokens.SessionExpired()
	}
	c.events.AuthExpired()
}

func (c *Conversation) appendBotMessage(text string) {
	msg := domain.Message{Sender: domain.SenderBot, Text: text, Timestamp: c.now()}
	c.mu.Lock()
	c.transcript = append(c.transcript, msg)
	c.mu.Unlock()
	c.events.MessageAppended(msg)
}

func (c *Conversation) greeting() domain.Message {
	return domain.Message{Sender: domain.SenderBot, Text: greetingText, Timestamp: c.now()}
}

func (c *Conversation) snapshotLocked() []domain.Message {
	out := make([]domain.Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

func failureText(err error) string {
	switch domain.FailureKindOf(err) {
	case domain.FailureTimeout:
		return timeoutFailureText
	case domain.FailureRejected:
		return rejectedTextPrefix + domain.FailureDetailOf(err)
	default:
		return networkFailureText
	}
}

func failureCode(err error) domain.ErrorCode {
	if domain.FailureKindOf(err) == domain.FailureRejected {
		return domain.ErrorCodeService
	}
	return domain.ErrorCodeNetwork
}

func captureFailureText(reason domain.CaptureReason) string {
	switch reason {
	case domain.CapturePermissionDenied:
		return micDeniedText
	case domain.CaptureNoSpeech:
		return micNoSpeechText
	default:
		return micFailureText
	}
}
