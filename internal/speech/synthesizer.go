package speech

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"campusvoice/internal/observability"
	"campusvoice/internal/rules"
)

const speakDeadline = 2 * time.Minute

// CommandSynthesizer speaks text through an external synthesizer command
// (espeak-ng, say). Playback runs detached from the caller: Speak returns
// immediately and failures are logged, never propagated.
type CommandSynthesizer struct {
	command   string
	sanitizer *rules.Engine
	run       func(text string) error
}

func NewCommandSynthesizer(command string, sanitizer *rules.Engine) *CommandSynthesizer {
	s := &CommandSynthesizer{command: command, sanitizer: sanitizer}
	s.run = s.runCommand
	return s
}

// Speak vocalizes text best-effort after stripping markup the voice
// should not read aloud.
func (s *CommandSynthesizer) Speak(text string) {
	clean := text
	if s.sanitizer != nil {
		sanitized, err := s.sanitizer.Apply(text)
		if err == nil {
			clean = sanitized
		}
	}
	clean = strings.TrimSpace(clean)
	if clean == "" || s.command == "" {
		return
	}

	go func() {
		if err := s.run(clean); err != nil {
			observability.Logger().Warn("speech playback failed", "error", err)
		}
	}()
}

func (s *CommandSynthesizer) runCommand(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), speakDeadline)
	defer cancel()
	return exec.CommandContext(ctx, s.command, text).Run()
}
