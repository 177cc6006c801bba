package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the client.
type Config struct {
	API      APIConfig
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Speech   SpeechConfig
}

type APIConfig struct {
	BaseURL      string
	TokenFile    string
	AskTimeout   time.Duration
	FetchTimeout time.Duration
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	ChunkSize       int
	MaxUtterance    time.Duration
}

type SpeechConfig struct {
	SpeakCommand   string
	RulesPath      string
	IterationLimit int
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := Config{
		API: APIConfig{
			BaseURL:      envOrDefault("CAMPUSVOICE_API_BASE", "http://127.0.0.1:8000"),
			TokenFile:    envOrDefault("CAMPUSVOICE_TOKEN_FILE", filepath.Join(home, ".config", "campusvoice", "token")),
			AskTimeout:   time.Duration(envOrDefaultInt("CAMPUSVOICE_ASK_TIMEOUT_MS", 60000)) * time.Millisecond,
			FetchTimeout: time.Duration(envOrDefaultInt("CAMPUSVOICE_FETCH_TIMEOUT_MS", 15000)) * time.Millisecond,
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("CAMPUSVOICE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("CAMPUSVOICE_AUDIO_INPUT_FORMAT", defaultInputFormat()),
			InputDevice:     envOrDefault("CAMPUSVOICE_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("CAMPUSVOICE_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("CAMPUSVOICE_CHANNELS", 1),
			ChunkSize:       envOrDefaultInt("CAMPUSVOICE_AUDIO_CHUNK_SIZE", 4096),
			MaxUtterance:    time.Duration(envOrDefaultInt("CAMPUSVOICE_MAX_UTTERANCE_MS", 15000)) * time.Millisecond,
		},
		Speech: SpeechConfig{
			SpeakCommand:   envOrDefault("CAMPUSVOICE_SPEAK_COMMAND", defaultSpeakCommand()),
			RulesPath:      strings.TrimSpace(os.Getenv("CAMPUSVOICE_SPEECH_RULES_FILE")),
			IterationLimit: envOrDefaultInt("CAMPUSVOICE_RULE_ITERATION_LIMIT", 30),
		},
	}

	if cfg.API.AskTimeout <= 0 {
		cfg.API.AskTimeout = 60 * time.Second
	}
	if cfg.API.FetchTimeout <= 0 {
		cfg.API.FetchTimeout = 15 * time.Second
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Audio.MaxUtterance <= 0 {
		cfg.Audio.MaxUtterance = 15 * time.Second
	}
	if cfg.Speech.IterationLimit <= 0 {
		cfg.Speech.IterationLimit = 30
	}

	return cfg, nil
}

func defaultSpeakCommand() string {
	if runtime.GOOS == "darwin" {
		return "say"
	}
	return "espeak-ng"
}

func defaultInputFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	default:
		return "pulse"
	}
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
