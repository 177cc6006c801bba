package domain

import (
	"errors"
	"fmt"
	"time"
)

// ConversationState models the lifecycle of the active conversation.
type ConversationState string

const (
	StateIdle             ConversationState = "idle"
	StateListening        ConversationState = "listening"
	StateAwaitingResponse ConversationState = "awaiting_response"
	StateError            ConversationState = "error"
)

// StateReason provides a structured reason for state transitions.
type StateReason string

const (
	ReasonReady            StateReason = "ready"
	ReasonListening        StateReason = "listening"
	ReasonAwaitingResponse StateReason = "awaiting_response"
	ReasonResponseArrived  StateReason = "response_arrived"
	ReasonResponseFailed   StateReason = "response_failed"
	ReasonResponseStopped  StateReason = "response_stopped"
	ReasonCaptureFailed    StateReason = "capture_failed"
	ReasonSessionSwitched  StateReason = "session_switched"
)

// ErrorCode identifies non-fatal backend errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup ErrorCode = "startup"
	ErrorCodeNetwork ErrorCode = "network"
	ErrorCodeService ErrorCode = "service"
	ErrorCodeHistory ErrorCode = "history"
	ErrorCodeSpeech  ErrorCode = "speech"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one transcript entry. Messages are immutable once appended.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Session is one server-tracked conversation. An empty ID means the
// conversation has not been acknowledged by the server yet.
type Session struct {
	ID        string `json:"session_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// HistoryRecord is one stored transcript entry as the server returns it.
type HistoryRecord struct {
	Kind    string
	Content string
}

// AskResult is a successful answer from the answering service.
type AskResult struct {
	Answer       string
	NewSessionID string
}

// Status summarizes the current runtime status.
type Status struct {
	State     ConversationState `json:"state"`
	Active    bool              `json:"active"`
	SessionID string            `json:"sessionId"`
	Message   string            `json:"message,omitempty"`
}

// ErrAuthExpired marks a request rejected because the credential is no
// longer valid. It is never rendered into the transcript; the auth
// collaborator takes over.
var ErrAuthExpired = errors.New("authentication expired")

// FailureKind classifies answering-service request failures.
type FailureKind string

const (
	FailureNetwork  FailureKind = "network"
	FailureRejected FailureKind = "rejected"
	FailureTimeout  FailureKind = "timeout"
)

// RequestError is a classified answering-service failure.
type RequestError struct {
	Kind   FailureKind
	Detail string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// FailureKindOf extracts the classification from a request error,
// defaulting to a network failure for unclassified errors.
func FailureKindOf(err error) FailureKind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return FailureNetwork
}

// FailureDetailOf returns the server-provided detail, if any.
func FailureDetailOf(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Detail
	}
	return ""
}

// CaptureReason classifies why a voice capture produced no transcript.
type CaptureReason string

const (
	CapturePermissionDenied CaptureReason = "permission-denied"
	CaptureNoSpeech         CaptureReason = "no-speech"
	CaptureOther            CaptureReason = "other"
)

// CaptureError is a classified voice-capture failure.
type CaptureError struct {
	Reason CaptureReason
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("capture failed (%s)", e.Reason)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// CaptureReasonOf extracts the classification from a capture error.
func CaptureReasonOf(err error) CaptureReason {
	var capErr *CaptureError
	if errors.As(err, &capErr) {
		return capErr.Reason
	}
	return CaptureOther
}
