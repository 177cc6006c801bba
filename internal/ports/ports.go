package ports

import (
	"context"
	"io"

	"campusvoice/internal/domain"
)

// AnswerService is the remote answering service consumed by the controller.
type AnswerService interface {
	Ask(ctx context.Context, question string, sessionID string) (domain.AskResult, error)
	Sessions(ctx context.Context) ([]domain.Session, error)
	History(ctx context.Context, sessionID string) ([]domain.HistoryRecord, error)
}

// SpeechInput is a single-shot voice capture device. Capture blocks until
// one utterance is transcribed or fails with a domain.CaptureError.
type SpeechInput interface {
	Available() bool
	Capture(ctx context.Context) (string, error)
}

// SpeechOutput renders text as audible speech. Best-effort: it never
// blocks the caller and never reports failure back.
type SpeechOutput interface {
	Speak(text string)
}

// TokenStore supplies the bearer credential and handles its expiry.
type TokenStore interface {
	Token() (string, error)
	SessionExpired()
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	StateChanged(state domain.ConversationState, reason domain.StateReason)
	MessageAppended(msg domain.Message)
	TranscriptReplaced(transcript []domain.Message)
	SessionListChanged(sessions []domain.Session)
	ActiveSessionChanged(sessionID string)
	AuthExpired()
	ConversationError(code domain.ErrorCode, detail string)
}
