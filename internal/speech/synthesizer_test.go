package speech

import (
	"sync"
	"testing"
	"time"

	"campusvoice/internal/rules"
)

func TestSpeakSanitizesMarkup(t *testing.T) {
	t.Parallel()

	sanitizer, err := rules.NewEngine("", 30)
	if err != nil {
		t.Fatalf("failed to create sanitizer: %v", err)
	}

	rec := &recordingRunner{spoken: make(chan string, 1)}
	synth := NewCommandSynthesizer("espeak-ng", sanitizer)
	synth.run = rec.run

	synth.Speak("Your **fee** is *paid*")

	select {
	case got := <-rec.spoken:
		if got != "Your fee is paid" {
			t.Fatalf("unexpected spoken text: %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("playback was never invoked")
	}
}

func TestSpeakSkipsEmptyText(t *testing.T) {
	t.Parallel()

	rec := &recordingRunner{spoken: make(chan string, 1)}
	synth := NewCommandSynthesizer("espeak-ng", nil)
	synth.run = rec.run

	synth.Speak("   ")

	select {
	case got := <-rec.spoken:
		t.Fatalf("unexpected playback of %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSpeakFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	synth := NewCommandSynthesizer("espeak-ng", nil)
	done := make(chan struct{})
	synth.run = func(string) error {
		close(done)
		return errTestPlayback
	}

	synth.Speak("hello")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("playback was never invoked")
	}
}

var errTestPlayback = &playbackError{}

type playbackError struct{}

func (*playbackError) Error() string { return "playback failed" }

type recordingRunner struct {
	mu     sync.Mutex
	spoken chan string
}

func (r *recordingRunner) run(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken <- text
	return nil
}
