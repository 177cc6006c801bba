package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"campusvoice/internal/domain"
	"campusvoice/internal/observability"
	"campusvoice/internal/ports"
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// Options tunes one-shot capture behavior.
type Options struct {
	Audio        ports.AudioConfig
	ChunkSize    int
	MaxUtterance time.Duration
}

// Recognizer is a single-shot voice capture device: one activation
// records the microphone, streams it to Deepgram, and resolves to one
// transcript or one classified failure.
type Recognizer struct {
	cfg     Config
	capture ports.AudioCapture
	opts    Options
}

func NewRecognizer(cfg Config, capture ports.AudioCapture, opts Options) *Recognizer {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if opts.ChunkSize < 256 {
		opts.ChunkSize = 4096
	}
	if opts.MaxUtterance <= 0 {
		opts.MaxUtterance = 15 * time.Second
	}
	return &Recognizer{cfg: cfg, capture: capture, opts: opts}
}

// Available reports whether voice capture can work at all.
func (r *Recognizer) Available() bool {
	return r.capture != nil && strings.TrimSpace(r.cfg.APIKey) != ""
}

// Capture records one utterance and returns its transcript. The capture
// ends at the first end-of-speech marker, on silence, or at the
// utterance deadline, whichever comes first.
func (r *Recognizer) Capture(ctx context.Context) (string, error) {
	if !r.Available() {
		return "", &domain.CaptureError{Reason: domain.CaptureOther, Err: errors.New("recognizer is not configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.MaxUtterance)
	defer cancel()

	conn, err := r.dial(ctx)
	if err != nil {
		return "", &domain.CaptureError{Reason: domain.CaptureOther, Err: err}
	}
	defer conn.Close()

	mic, err := r.capture.Start(ctx, r.opts.Audio)
	if err != nil {
		// A capture device that refuses to open is indistinguishable
		// from a denied microphone at this level.
		return "", &domain.CaptureError{Reason: domain.CapturePermissionDenied, Err: err}
	}
	defer mic.Stop()

	pumpDone := make(chan error, 1)
	go pump(mic, conn, r.opts.ChunkSize, pumpDone)

	transcript, err := collectTranscript(ctx, conn)

	_ = mic.Stop()
	if pumpErr := <-pumpDone; pumpErr != nil && err == nil {
		observability.Logger().Warn("audio stream ended early", "error", pumpErr)
	}
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))

	if err != nil {
		return "", &domain.CaptureError{Reason: domain.CaptureOther, Err: err}
	}
	if transcript == "" {
		return "", &domain.CaptureError{Reason: domain.CaptureNoSpeech, Err: errors.New("no speech detected")}
	}
	return transcript, nil
}

func (r *Recognizer) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL, err := r.listenURL()
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}
	return conn, nil
}

func (r *Recognizer) listenURL() (string, error) {
	parsed, err := url.Parse(r.cfg.APIBaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram base URL: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/listen"

	query := parsed.Query()
	query.Set("model", r.cfg.Model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(sampleRate(r.opts.Audio)))
	query.Set("channels", strconv.Itoa(channels(r.opts.Audio)))
	query.Set("interim_results", "true")
	query.Set("endpointing", "400")
	if r.cfg.Language != "" {
		query.Set("language", r.cfg.Language)
	}
	if r.cfg.SmartFormat {
		query.Set("smart_format", "true")
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

func pump(mic ports.AudioSession, conn *websocket.Conn, chunkSize int, done chan<- error) {
	defer close(done)

	buf := make([]byte, chunkSize)
	for {
		n, err := mic.Read(buf)
		if n > 0 {
			if sendErr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); sendErr != nil {
				done <- fmt.Errorf("failed to stream audio: %w", sendErr)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// collectTranscript reads result events until the provider marks the end
// of the utterance, accumulating final segments in order.
func collectTranscript(ctx context.Context, conn *websocket.Conn) (string, error) {
	var finals []string

	done := ctx.Done()
	go func() {
		<-done
		// Unblocks ReadMessage once the deadline or caller cancels.
		_ = conn.SetReadDeadline(time.Now())
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			// Deadline expiry just ends the utterance with whatever was
			// heard so far.
			if ctx.Err() != nil || websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				return joined(finals), nil
			}
			return "", fmt.Errorf("failed to read provider event: %w", err)
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			return "", errors.New(message)
		}

		text := transcriptOf(response)
		if response.IsFinal && text != "" {
			finals = append(finals, text)
		}
		if response.SpeechFinal {
			return joined(finals), nil
		}
	}
}

func transcriptOf(response listenResponse) string {
	if len(response.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
}

func joined(finals []string) string {
	return strings.TrimSpace(strings.Join(finals, " "))
}

func sampleRate(cfg ports.AudioConfig) int {
	if cfg.SampleRate > 0 {
		return cfg.SampleRate
	}
	return 16000
}

func channels(cfg ports.AudioConfig) int {
	if cfg.Channels > 0 {
		return cfg.Channels
	}
	return 1
}
