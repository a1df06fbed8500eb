// Package config provides the configuration schema and YAML loader for s2t.
//
// Configuration lives at ~/.config/s2t/config.yaml by default. A missing
// file is not an error: [Load] writes a default config on first run, the way
// first-launch desktop tools are expected to behave.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Jakub3628800/s2t/pkg/audio"
	"github.com/Jakub3628800/s2t/pkg/vad"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// DefaultPath returns the default config file location
// (~/.config/s2t/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "s2t", "config.yaml")
}

// Config is the root configuration structure for s2t.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Recorder RecorderConfig `yaml:"recorder"`
	Backends BackendsConfig `yaml:"backends"`
	Output   OutputConfig   `yaml:"output"`
	Notify   NotifyConfig   `yaml:"notifications"`
	Server   ServerConfig   `yaml:"server"`
}

// AudioConfig holds microphone capture settings.
type AudioConfig struct {
	// SampleRate in Hz. Whisper models expect 16000.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the input channel count (1 or 2).
	Channels int `yaml:"channels"`

	// ChunkSize is the number of samples read per device call.
	ChunkSize int `yaml:"chunk_size"`

	// DeviceIndex selects a specific input device; nil means the system
	// default.
	DeviceIndex *int `yaml:"device_index"`
}

// RecorderConfig holds the silence-gate settings that decide when a
// recording stops on its own.
type RecorderConfig struct {
	// VADEnabled controls whether sustained silence ends the recording.
	VADEnabled bool `yaml:"vad_enabled"`

	// SilenceThreshold is the normalized level (0..1) below which audio
	// counts as silence.
	SilenceThreshold float64 `yaml:"silence_threshold"`

	// SilenceDuration is how long silence must last, after speech, before
	// the recording stops. Seconds, fractional values allowed.
	SilenceDuration float64 `yaml:"silence_duration"`

	// MinRecordingTime suppresses auto-stop for this long after start.
	// Seconds, fractional values allowed.
	MinRecordingTime float64 `yaml:"min_recording_time"`

	// Gain is the level-meter scaling factor. The default thresholds were
	// tuned against 5.0; change both together.
	Gain float64 `yaml:"gain"`
}

// BackendsConfig selects and configures the speech-to-text backend.
type BackendsConfig struct {
	// Default names the backend to use: "whisper_api", "whisper_server", or
	// "whisper_native".
	Default string `yaml:"default"`

	// Fallback lists additional backends tried, in order, when the default
	// one fails. A recording is never re-capturable, so a flaky backend
	// should not lose the transcript.
	Fallback []string `yaml:"fallback"`

	WhisperAPI    WhisperAPIConfig    `yaml:"whisper_api"`
	WhisperServer WhisperServerConfig `yaml:"whisper_server"`
	WhisperNative WhisperNativeConfig `yaml:"whisper_native"`
}

// WhisperAPIConfig configures the OpenAI Whisper API backend.
type WhisperAPIConfig struct {
	// APIKey authenticates against the API. When empty the OPENAI_API_KEY
	// environment variable is used.
	APIKey string `yaml:"api_key"`

	// Model selects the transcription model (default "whisper-1").
	Model string `yaml:"model"`

	// Language is the ISO-639-1 language hint (default "en").
	Language string `yaml:"language"`

	// Temperature is the sampling temperature in [0, 1].
	Temperature float64 `yaml:"temperature"`

	// BaseURL overrides the API endpoint, for API-compatible servers.
	BaseURL string `yaml:"base_url"`
}

// WhisperServerConfig configures the local whisper.cpp server backend.
type WhisperServerConfig struct {
	// URL of the whisper-server REST endpoint (e.g. "http://localhost:8080").
	URL string `yaml:"url"`

	// Model is forwarded to the server; empty uses the server's loaded model.
	Model string `yaml:"model"`

	// Language is the BCP-47 language code (default "en").
	Language string `yaml:"language"`
}

// WhisperNativeConfig configures the in-process whisper.cpp backend.
type WhisperNativeConfig struct {
	// ModelPath is the ggml model file loaded at startup.
	ModelPath string `yaml:"model_path"`

	// Language is the BCP-47 language code (default "en").
	Language string `yaml:"language"`
}

// OutputConfig controls what happens to recordings and transcripts.
type OutputConfig struct {
	// SaveAudio keeps the WAV artifact after transcription instead of
	// deleting it.
	SaveAudio bool `yaml:"save_audio"`

	// TranscriptionsDir, when set, receives a timestamped copy of every
	// transcript.
	TranscriptionsDir string `yaml:"transcriptions_dir"`
}

// NotifyConfig controls desktop notifications.
type NotifyConfig struct {
	// Enabled turns desktop notifications on.
	Enabled bool `yaml:"enabled"`
}

// ServerConfig holds logging and observability settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr, when set (e.g. ":9090"), serves Prometheus metrics and
	// health endpoints on that address for the lifetime of the process.
	MetricsAddr string `yaml:"metrics_addr"`
}

// CaptureParams converts the audio section to capture parameters.
func (c *Config) CaptureParams() audio.Params {
	return audio.Params{
		SampleRate:  c.Audio.SampleRate,
		Channels:    c.Audio.Channels,
		ChunkSize:   c.Audio.ChunkSize,
		DeviceIndex: c.Audio.DeviceIndex,
	}
}

// GateConfig converts the recorder section to a silence-gate configuration.
func (c *Config) GateConfig() vad.Config {
	return vad.Config{
		Enabled:          c.Recorder.VADEnabled,
		Threshold:        c.Recorder.SilenceThreshold,
		SilenceDuration:  time.Duration(c.Recorder.SilenceDuration * float64(time.Second)),
		MinRecordingTime: time.Duration(c.Recorder.MinRecordingTime * float64(time.Second)),
		Gain:             c.Recorder.Gain,
	}
}

// Default returns the built-in configuration, matching the interactive
// recorder defaults.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			ChunkSize:  1024,
		},
		Recorder: RecorderConfig{
			VADEnabled:       true,
			SilenceThreshold: 0.1,
			SilenceDuration:  5.0,
			MinRecordingTime: 3.0,
			Gain:             5.0,
		},
		Backends: BackendsConfig{
			Default: "whisper_api",
			WhisperAPI: WhisperAPIConfig{
				Model:    "whisper-1",
				Language: "en",
			},
			WhisperServer: WhisperServerConfig{
				Language: "en",
			},
			WhisperNative: WhisperNativeConfig{
				Language: "en",
			},
		},
		Notify: NotifyConfig{Enabled: true},
		Server: ServerConfig{LogLevel: LogInfo},
	}
}
