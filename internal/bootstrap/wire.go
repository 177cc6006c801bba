package bootstrap

import (
	"campusvoice/internal/audio"
	"campusvoice/internal/auth"
	"campusvoice/internal/config"
	"campusvoice/internal/ports"
	"campusvoice/internal/providers/answerapi"
	"campusvoice/internal/providers/deepgram"
	"campusvoice/internal/rules"
	"campusvoice/internal/speech"
	"campusvoice/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Conversation *usecase.Conversation
	Config       config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	sanitizer, err := rules.NewEngine(cfg.Speech.RulesPath, cfg.Speech.IterationLimit)
	if err != nil {
		return Services{}, err
	}

	tokens := auth.NewFileTokenStore(cfg.API.TokenFile)
	service := answerapi.New(cfg.API.BaseURL, tokens)

	recognizer := deepgram.NewRecognizer(
		deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		},
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		deepgram.Options{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			ChunkSize:    cfg.Audio.ChunkSize,
			MaxUtterance: cfg.Audio.MaxUtterance,
		},
	)

	conversation := usecase.NewConversation(
		service,
		recognizer,
		speech.NewCommandSynthesizer(cfg.Speech.SpeakCommand, sanitizer),
		tokens,
		eventSink,
		usecase.Config{
			AskTimeout:   cfg.API.AskTimeout,
			FetchTimeout: cfg.API.FetchTimeout,
		},
	)

	return Services{Conversation: conversation, Config: cfg}, nil
}
