package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidBackendNames lists the recognised speech-to-text backend names.
// Used by [Validate] to reject typos early instead of failing at runtime.
var ValidBackendNames = []string{"whisper_api", "whisper_server", "whisper_native"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. When the file does not exist a default config is written there
// (creating parent directories) and returned.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return createDefault(path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills unset fields with
// defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels < 1 || cfg.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d must be 1 or 2", cfg.Audio.Channels))
	}
	if cfg.Audio.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.chunk_size %d must be positive", cfg.Audio.ChunkSize))
	}
	if cfg.Audio.DeviceIndex != nil && *cfg.Audio.DeviceIndex < 0 {
		errs = append(errs, fmt.Errorf("audio.device_index %d must not be negative", *cfg.Audio.DeviceIndex))
	}

	if t := cfg.Recorder.SilenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("recorder.silence_threshold %.3f is out of range [0, 1]", t))
	}
	if cfg.Recorder.SilenceDuration < 0 {
		errs = append(errs, fmt.Errorf("recorder.silence_duration must not be negative"))
	}
	if cfg.Recorder.MinRecordingTime < 0 {
		errs = append(errs, fmt.Errorf("recorder.min_recording_time must not be negative"))
	}
	if cfg.Recorder.Gain < 0 {
		errs = append(errs, fmt.Errorf("recorder.gain must not be negative"))
	}

	if name := cfg.Backends.Default; name != "" && !slices.Contains(ValidBackendNames, name) {
		errs = append(errs, fmt.Errorf("backends.default %q is unknown; valid values: %v", name, ValidBackendNames))
	}
	for _, name := range cfg.Backends.Fallback {
		if !slices.Contains(ValidBackendNames, name) {
			errs = append(errs, fmt.Errorf("backends.fallback entry %q is unknown; valid values: %v", name, ValidBackendNames))
		}
		if name == cfg.Backends.Default {
			errs = append(errs, fmt.Errorf("backends.fallback entry %q duplicates backends.default", name))
		}
	}
	if cfg.Backends.Default == "whisper_server" && cfg.Backends.WhisperServer.URL == "" {
		errs = append(errs, fmt.Errorf("backends.whisper_server.url is required when backends.default is whisper_server"))
	}
	if cfg.Backends.Default == "whisper_native" && cfg.Backends.WhisperNative.ModelPath == "" {
		errs = append(errs, fmt.Errorf("backends.whisper_native.model_path is required when backends.default is whisper_native"))
	}

	// A missing API key is a warning, not an error: the key may arrive via
	// the environment at run time.
	if cfg.Backends.Default == "whisper_api" && cfg.Backends.WhisperAPI.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
		slog.Warn("no OpenAI API key found in config or environment; transcription will fail")
	}

	return errors.Join(errs...)
}

// createDefault writes the default configuration to path and returns it.
func createDefault(path string) (*Config, error) {
	cfg := Default()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("config: create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: marshal defaults: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("config: write %q: %w", path, err)
	}
	slog.Info("created default configuration", "path", path)
	return cfg, nil
}
