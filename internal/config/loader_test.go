package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadFromReader_EmptyInputYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("Channels = %d, want 1", cfg.Audio.Channels)
	}
	if cfg.Audio.ChunkSize != 1024 {
		t.Errorf("ChunkSize = %d, want 1024", cfg.Audio.ChunkSize)
	}
	if !cfg.Recorder.VADEnabled {
		t.Error("VADEnabled = false, want true")
	}
	if cfg.Recorder.SilenceThreshold != 0.1 {
		t.Errorf("SilenceThreshold = %v, want 0.1", cfg.Recorder.SilenceThreshold)
	}
	if cfg.Recorder.SilenceDuration != 5.0 {
		t.Errorf("SilenceDuration = %v, want 5.0", cfg.Recorder.SilenceDuration)
	}
	if cfg.Recorder.MinRecordingTime != 3.0 {
		t.Errorf("MinRecordingTime = %v, want 3.0", cfg.Recorder.MinRecordingTime)
	}
	if cfg.Backends.Default != "whisper_api" {
		t.Errorf("Backends.Default = %q, want whisper_api", cfg.Backends.Default)
	}
	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("LogLevel = %q, want %q", cfg.Server.LogLevel, LogInfo)
	}
}

func TestLoadFromReader_OverridesDefaults(t *testing.T) {
	t.Parallel()

	const yml = `
audio:
  sample_rate: 44100
  channels: 2
recorder:
  vad_enabled: false
  silence_threshold: 0.25
  silence_duration: 2.5
backends:
  default: whisper_server
  whisper_server:
    url: http://localhost:8080
server:
  log_level: debug
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 2 {
		t.Errorf("Channels = %d, want 2", cfg.Audio.Channels)
	}
	// Fields absent from the YAML keep their defaults.
	if cfg.Audio.ChunkSize != 1024 {
		t.Errorf("ChunkSize = %d, want default 1024", cfg.Audio.ChunkSize)
	}
	if cfg.Recorder.VADEnabled {
		t.Error("VADEnabled = true, want false")
	}
	if cfg.Recorder.SilenceThreshold != 0.25 {
		t.Errorf("SilenceThreshold = %v, want 0.25", cfg.Recorder.SilenceThreshold)
	}
	if cfg.Backends.Default != "whisper_server" {
		t.Errorf("Backends.Default = %q, want whisper_server", cfg.Backends.Default)
	}
	if cfg.Backends.WhisperServer.URL != "http://localhost:8080" {
		t.Errorf("WhisperServer.URL = %q", cfg.Backends.WhisperServer.URL)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	const yml = `
audio:
  sample_rate: 16000
  bitrate: 320
`
	if _, err := LoadFromReader(strings.NewReader(yml)); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestLoadFromReader_ValidationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yml  string
		want string
	}{
		{
			name: "bad log level",
			yml:  "server:\n  log_level: verbose\n",
			want: "log_level",
		},
		{
			name: "threshold out of range",
			yml:  "recorder:\n  silence_threshold: 1.5\n",
			want: "silence_threshold",
		},
		{
			name: "negative silence duration",
			yml:  "recorder:\n  silence_duration: -1\n",
			want: "silence_duration",
		},
		{
			name: "unknown backend",
			yml:  "backends:\n  default: dictation\n",
			want: "backends.default",
		},
		{
			name: "whisper_server without url",
			yml:  "backends:\n  default: whisper_server\n",
			want: "whisper_server.url",
		},
		{
			name: "whisper_native without model",
			yml:  "backends:\n  default: whisper_native\n",
			want: "model_path",
		},
		{
			name: "negative device index",
			yml:  "audio:\n  device_index: -2\n",
			want: "device_index",
		},
		{
			name: "too many channels",
			yml:  "audio:\n  channels: 4\n",
			want: "channels",
		},
		{
			name: "unknown fallback backend",
			yml:  "backends:\n  fallback: [carrier_pigeon]\n",
			want: "backends.fallback",
		},
		{
			name: "fallback duplicates default",
			yml:  "backends:\n  fallback: [whisper_api]\n",
			want: "duplicates",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadFromReader(strings.NewReader(tc.yml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadFromReader_CollectsAllFailures(t *testing.T) {
	t.Parallel()

	const yml = `
audio:
  channels: 9
recorder:
  silence_threshold: 2
server:
  log_level: loud
`
	_, err := LoadFromReader(strings.NewReader(yml))
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"channels", "silence_threshold", "log_level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

func TestLoad_CreatesDefaultFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "s2t", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}

	// The defaults must be written to disk and load back identically.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(again, cfg) {
		t.Errorf("reloaded config differs: %+v vs %+v", again, cfg)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("audio: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_GateConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Recorder.SilenceDuration = 2.5
	cfg.Recorder.MinRecordingTime = 0.5

	g := cfg.GateConfig()
	if !g.Enabled {
		t.Error("Enabled = false, want true")
	}
	if g.SilenceDuration != 2500*time.Millisecond {
		t.Errorf("SilenceDuration = %v, want 2.5s", g.SilenceDuration)
	}
	if g.MinRecordingTime != 500*time.Millisecond {
		t.Errorf("MinRecordingTime = %v, want 0.5s", g.MinRecordingTime)
	}
	if g.Threshold != 0.1 {
		t.Errorf("Threshold = %v, want 0.1", g.Threshold)
	}
	if g.Gain != 5.0 {
		t.Errorf("Gain = %v, want 5.0", g.Gain)
	}
}

func TestConfig_CaptureParams(t *testing.T) {
	t.Parallel()

	cfg := Default()
	idx := 3
	cfg.Audio.DeviceIndex = &idx

	p := cfg.CaptureParams()
	if p.SampleRate != 16000 || p.Channels != 1 || p.ChunkSize != 1024 {
		t.Errorf("params = %+v", p)
	}
	if p.DeviceIndex == nil || *p.DeviceIndex != 3 {
		t.Error("DeviceIndex not carried through")
	}
}
