package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"campusvoice/internal/bootstrap"
	"campusvoice/internal/config"
	"campusvoice/internal/domain"
	"campusvoice/internal/usecase"
)

const (
	eventState      = "campusvoice:state"
	eventMessage    = "campusvoice:message"
	eventTranscript = "campusvoice:transcript"
	eventSessions   = "campusvoice:sessions"
	eventSession    = "campusvoice:session"
	eventAuth       = "campusvoice:auth-expired"
	eventError      = "campusvoice:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	conversation *usecase.Conversation
	cfg          config.Config
	bootErr      error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.ConversationError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.conversation = services.Conversation
	a.StateChanged(domain.StateIdle, domain.ReasonReady)
}

// SendMessage submits one typed question.
func (a *App) SendMessage(text string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.conversation.Submit(text); err != nil {
		return domain.Status{}, err
	}
	return a.conversation.Status(), nil
}

// StartVoice begins one voice capture.
func (a *App) StartVoice() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.conversation.ActivateMic(); err != nil {
		if errors.Is(err, usecase.ErrSpeechUnavailable) {
			a.ConversationError(domain.ErrorCodeSpeech, err.Error())
		}
		return domain.Status{}, err
	}
	return a.conversation.Status(), nil
}

// StopResponse abandons the pending answer.
func (a *App) StopResponse() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.conversation.Cancel(); err != nil {
		if errors.Is(err, usecase.ErrNoPendingResponse) {
			return nil
		}
		return err
	}
	return nil
}

// NewChat starts a fresh, server-unassigned conversation.
func (a *App) NewChat() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.conversation.SwitchSession("")
	return nil
}

// OpenSession makes a stored session active and hydrates its transcript.
func (a *App) OpenSession(sessionID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.conversation.SwitchSession(sessionID)
	return nil
}

// ListSessions refreshes and returns the session catalog.
func (a *App) ListSessions() ([]domain.Session, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.conversation.ListSessions(a.ctx)
}

// GetTranscript returns the active session's transcript.
func (a *App) GetTranscript() []domain.Message {
	if a.conversation == nil {
		return nil
	}
	return a.conversation.Transcript()
}

// GetStatus returns the current conversation status.
func (a *App) GetStatus() domain.Status {
	if a.conversation == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.StateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.StateIdle, Active: false}
	}
	return a.conversation.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"apiBase":      a.cfg.API.BaseURL,
		"speechModel":  a.cfg.Deepgram.Model,
		"speechLang":   a.cfg.Deepgram.Language,
		"speakCommand": a.cfg.Speech.SpeakCommand,
		"audioInput":   a.cfg.Audio.InputDevice,
		"audioFormat":  a.cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.conversation == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// StateChanged emits conversation lifecycle updates to the frontend.
func (a *App) StateChanged(state domain.ConversationState, reason domain.StateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventState, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": stateReasonMessage(reason),
	})
}

// MessageAppended emits one new transcript entry.
func (a *App) MessageAppended(msg domain.Message) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventMessage, msg)
}

// TranscriptReplaced emits a wholesale transcript replacement.
func (a *App) TranscriptReplaced(transcript []domain.Message) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, transcript)
}

// SessionListChanged emits the refreshed session catalog.
func (a *App) SessionListChanged(sessions []domain.Session) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSessions, sessions)
}

// ActiveSessionChanged emits the newly active session id.
func (a *App) ActiveSessionChanged(sessionID string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{"sessionId": sessionID})
}

// AuthExpired tells the frontend to drop to the login screen.
func (a *App) AuthExpired() {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventAuth, map[string]string{
		"message": "Session expired. Please log in again.",
	})
}

// ConversationError emits backend errors to the UI.
func (a *App) ConversationError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func stateReasonMessage(reason domain.StateReason) string {
	switch reason {
	case domain.ReasonReady:
		return "Ready"
	case domain.ReasonListening:
		return "Listening..."
	case domain.ReasonAwaitingResponse:
		return "Thinking..."
	case domain.ReasonResponseArrived:
		return "Response received"
	case domain.ReasonResponseFailed:
		return "Response failed"
	case domain.ReasonResponseStopped:
		return "Response stopped"
	case domain.ReasonCaptureFailed:
		return "Voice capture failed"
	case domain.ReasonSessionSwitched:
		return "Conversation switched"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeNetwork:
		return "Connection problem"
	case domain.ErrorCodeService:
		return "The assistant reported an error"
	case domain.ErrorCodeHistory:
		return "Could not load conversation history"
	case domain.ErrorCodeSpeech:
		return "Voice capture problem"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
