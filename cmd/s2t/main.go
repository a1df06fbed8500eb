// Command s2t records microphone audio, stops on sustained silence, and
// prints the Whisper transcription.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Jakub3628800/s2t/internal/config"
	"github.com/Jakub3628800/s2t/internal/health"
	"github.com/Jakub3628800/s2t/internal/notify"
	"github.com/Jakub3628800/s2t/internal/observe"
	"github.com/Jakub3628800/s2t/internal/output"
	"github.com/Jakub3628800/s2t/internal/resilience"
	"github.com/Jakub3628800/s2t/pkg/audio"
	"github.com/Jakub3628800/s2t/pkg/capture"
	"github.com/Jakub3628800/s2t/pkg/provider/stt"
	sttopenai "github.com/Jakub3628800/s2t/pkg/provider/stt/openai"
	"github.com/Jakub3628800/s2t/pkg/provider/stt/whisper"
	"github.com/Jakub3628800/s2t/pkg/vad"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", config.DefaultPath(), "path to the YAML configuration file")
	recordTime := flag.Float64("time", 0, "record for a fixed number of seconds and disable silence detection")
	noVAD := flag.Bool("no-vad", false, "disable automatic stop on silence")
	silenceThreshold := flag.Float64("silence-threshold", -1, "override the silence threshold (0..1)")
	silenceDuration := flag.Float64("silence-duration", -1, "override the silence duration in seconds")
	minRecordingTime := flag.Float64("min-recording-time", -1, "override the auto-stop warm-up in seconds")
	outputPath := flag.String("output", "", "write the transcript to this file")
	toClipboard := flag.Bool("clipboard", false, "copy the transcript to the clipboard")
	silent := flag.Bool("silent", false, "headless mode: no notifications, no level meter, markers around the transcript on stdout")
	debug := flag.Bool("debug", false, "enable debug logging")
	noNotifications := flag.Bool("no-notifications", false, "disable desktop notifications")
	filePath := flag.String("file", "", "transcribe an existing WAV file instead of recording")
	listDevices := flag.Bool("list-devices", false, "list audio input devices and exit")
	saveAudio := flag.Bool("save-audio", false, "keep the recorded WAV file after transcription")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics and health probes on this address")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "s2t: %v\n", err)
		return 1
	}
	applyFlagOverrides(cfg, flagOverrides{
		recordTime:       *recordTime,
		noVAD:            *noVAD,
		silenceThreshold: *silenceThreshold,
		silenceDuration:  *silenceDuration,
		minRecordingTime: *minRecordingTime,
		silent:           *silent,
		debug:            *debug,
		noNotifications:  *noNotifications,
		saveAudio:        *saveAudio,
		metricsAddr:      *metricsAddr,
	})
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "s2t: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if *listDevices {
		return listInputDevices()
	}

	ctx := context.Background()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownObs, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "s2t",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObs(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Backend ───────────────────────────────────────────────────────────────
	backend, closeBackend, err := buildBackend(cfg)
	if err != nil {
		slog.Error("failed to build transcription backend", "err", err)
		return 1
	}
	defer closeBackend()
	if !backend.Available() {
		slog.Error("transcription backend not available",
			"backend", backend.Name(),
			"hint", "check the backends section of the config file",
		)
		return 1
	}
	slog.Debug("backend ready", "backend", backend.Name())

	notifier := buildNotifier(cfg)
	sinks := buildSinks(cfg, *outputPath, *toClipboard, *silent)

	// ── Optional metrics server ───────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	var srv *http.Server
	if cfg.Server.MetricsAddr != "" {
		srv = health.NewServer(cfg.Server.MetricsAddr, health.New(
			health.Checker{Name: "backend", Check: func(context.Context) error {
				if !backend.Available() {
					return fmt.Errorf("backend %s not available", backend.Name())
				}
				return nil
			}},
		))
		g.Go(func() error {
			slog.Info("metrics server listening", "addr", cfg.Server.MetricsAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	g.Go(func() error {
		defer func() {
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}
		}()

		wavPath := *filePath
		if wavPath == "" {
			artifact, err := record(gctx, cfg, metrics, notifier, *recordTime, *silent, nil)
			if err != nil {
				return err
			}
			if artifact == nil {
				slog.Info("nothing recorded, nothing to transcribe")
				return nil
			}
			wavPath = artifact.Path
			if !cfg.Output.SaveAudio {
				defer func() {
					if err := os.Remove(wavPath); err != nil {
						slog.Warn("failed to remove recording", "path", wavPath, "err", err)
					}
				}()
			} else {
				slog.Info("keeping audio file", "path", wavPath)
			}
		}

		text, err := transcribe(gctx, backend, metrics, wavPath)
		if err != nil {
			notifier.Notify("Transcription failed")
			return err
		}
		if strings.TrimSpace(text) == "" {
			slog.Info("transcription empty, no speech detected")
			notifier.Notify("No speech detected")
			return nil
		}

		notifier.Notify("Transcription ready")
		if err := sinks.Write(text); err != nil {
			return fmt.Errorf("deliver transcript: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("run error", "err", err)
		return 1
	}
	return 0
}

// flagOverrides carries the CLI flags that override config file values.
type flagOverrides struct {
	recordTime       float64
	noVAD            bool
	silenceThreshold float64
	silenceDuration  float64
	minRecordingTime float64
	silent           bool
	debug            bool
	noNotifications  bool
	saveAudio        bool
	metricsAddr      string
}

// applyFlagOverrides layers CLI flags over the loaded config. Flags win;
// negative durations and thresholds mean "not set".
func applyFlagOverrides(cfg *config.Config, f flagOverrides) {
	if f.debug {
		cfg.Server.LogLevel = config.LogDebug
	}
	// A fixed recording time replaces silence detection, like the popup
	// recorder's timed mode.
	if f.noVAD || f.recordTime > 0 {
		cfg.Recorder.VADEnabled = false
	}
	if f.silenceThreshold >= 0 {
		cfg.Recorder.SilenceThreshold = f.silenceThreshold
	}
	if f.silenceDuration >= 0 {
		cfg.Recorder.SilenceDuration = f.silenceDuration
	}
	if f.minRecordingTime >= 0 {
		cfg.Recorder.MinRecordingTime = f.minRecordingTime
	}
	if f.silent || f.noNotifications {
		cfg.Notify.Enabled = false
	}
	if f.saveAudio {
		cfg.Output.SaveAudio = true
	}
	if f.metricsAddr != "" {
		cfg.Server.MetricsAddr = f.metricsAddr
	}
}

// record runs one capture session to completion and returns the WAV
// artifact, or nil when nothing was captured. A nil open uses the real
// capture device.
func record(ctx context.Context, cfg *config.Config, metrics *observe.Metrics, notifier notify.Notifier, recordTime float64, silent bool, open audio.Opener) (*capture.Artifact, error) {
	ctx, span := observe.StartSpan(ctx, "record")
	defer span.End()
	log := observe.Logger(ctx)

	// autoStopped is written on the capture goroutine and read only after
	// Wait returns, which orders the accesses.
	var autoStopped bool
	silenceDur := time.Duration(cfg.Recorder.SilenceDuration * float64(time.Second))

	events := capture.Events{
		OnStateChange: func(state vad.State, silence time.Duration) {
			if state == vad.Silence {
				if cfg.Recorder.VADEnabled && silence >= silenceDur {
					autoStopped = true
				}
				log.Debug("silence", "elapsed", silence.Round(100*time.Millisecond))
			}
		},
	}
	if !silent {
		events.OnLevel = renderLevel
	}

	session := capture.New(cfg.GateConfig(), cfg.CaptureParams(), capture.Options{Open: open, Events: events})
	bridge := capture.NewBridge(session)
	defer bridge.Close()
	bridge.WatchSignals()
	if recordTime > 0 {
		bridge.StopAfter(time.Duration(recordTime * float64(time.Second)))
	}

	metrics.ActiveSessions.Add(ctx, 1)
	defer metrics.ActiveSessions.Add(ctx, -1)

	if err := session.Start(ctx); err != nil {
		// Session-state failures (double start, cancelled context) are not
		// device faults.
		if errors.Is(err, audio.ErrDeviceUnavailable) {
			metrics.DeviceErrors.Add(ctx, 1)
		}
		return nil, fmt.Errorf("start recording: %w", err)
	}
	notifier.Notify("Recording started")
	if cfg.Recorder.VADEnabled {
		log.Info("recording, stop with Ctrl+C or stay silent",
			"silence_duration", cfg.Recorder.SilenceDuration,
		)
	} else {
		log.Info("recording, stop with Ctrl+C")
	}

	artifact, err := session.Wait(ctx)
	if !silent {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		metrics.RecordRecording(ctx, "error", 0)
		return nil, fmt.Errorf("recording failed: %w", err)
	}
	if artifact == nil {
		metrics.RecordRecording(ctx, "empty", 0)
		return nil, nil
	}

	outcome := "manual"
	if autoStopped {
		outcome = "auto_stop"
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	metrics.RecordRecording(ctx, outcome, artifact.Duration.Seconds())
	metrics.FramesCaptured.Add(ctx, int64(artifact.Frames))
	notifier.Notify("Recording finished")
	log.Info("recording finished",
		"duration", artifact.Duration.Round(10*time.Millisecond),
		"frames", artifact.Frames,
	)
	return artifact, nil
}

// transcribe runs the backend on a WAV file and records the latency.
func transcribe(ctx context.Context, backend stt.Backend, metrics *observe.Metrics, wavPath string) (string, error) {
	ctx, span := observe.StartSpan(ctx, "transcribe",
		trace.WithAttributes(attribute.String("backend", backend.Name())),
	)
	defer span.End()
	log := observe.Logger(ctx)

	info, err := audio.ReadWAVInfo(wavPath)
	if err != nil {
		return "", fmt.Errorf("inspect recording: %w", err)
	}
	log.Info("transcribing",
		"backend", backend.Name(),
		"path", wavPath,
		"audio_duration", info.Duration.Round(10*time.Millisecond),
	)

	start := time.Now()
	text, err := backend.Transcribe(ctx, wavPath)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	span.SetAttributes(attribute.String("status", status))
	metrics.RecordTranscription(ctx, backend.Name(), status, elapsed.Seconds())

	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	log.Info("transcription done", "latency", elapsed.Round(10*time.Millisecond))
	return strings.TrimSpace(text), nil
}

// buildBackend constructs the configured transcription backend, wrapping it
// in a fallback chain when backends.fallback names alternates. The returned
// close function releases backend resources and is always safe to call.
func buildBackend(cfg *config.Config) (stt.Backend, func(), error) {
	primary, closePrimary, err := buildNamedBackend(cfg, cfg.Backends.Default)
	if err != nil {
		return nil, func() {}, err
	}
	if len(cfg.Backends.Fallback) == 0 {
		return primary, closePrimary, nil
	}

	chain := resilience.NewFallback(primary)
	closers := []func(){closePrimary}
	for _, name := range cfg.Backends.Fallback {
		b, closeB, err := buildNamedBackend(cfg, name)
		if err != nil {
			// A broken fallback should not block recording; the primary
			// still works.
			slog.Warn("skipping fallback backend", "backend", name, "err", err)
			continue
		}
		chain.Add(b)
		closers = append(closers, closeB)
	}
	return chain, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

// buildNamedBackend constructs a single backend by its config name.
func buildNamedBackend(cfg *config.Config, name string) (stt.Backend, func(), error) {
	noop := func() {}
	switch name {
	case "whisper_api":
		c := cfg.Backends.WhisperAPI
		opts := []sttopenai.Option{}
		if c.Model != "" {
			opts = append(opts, sttopenai.WithModel(c.Model))
		}
		if c.Language != "" {
			opts = append(opts, sttopenai.WithLanguage(c.Language))
		}
		if c.Temperature > 0 {
			opts = append(opts, sttopenai.WithTemperature(c.Temperature))
		}
		if c.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(c.BaseURL))
		}
		return sttopenai.New(c.APIKey, opts...), noop, nil

	case "whisper_server":
		c := cfg.Backends.WhisperServer
		opts := []whisper.Option{}
		if c.Model != "" {
			opts = append(opts, whisper.WithModel(c.Model))
		}
		if c.Language != "" {
			opts = append(opts, whisper.WithLanguage(c.Language))
		}
		s, err := whisper.NewServer(c.URL, opts...)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil

	case "whisper_native":
		c := cfg.Backends.WhisperNative
		opts := []whisper.NativeOption{}
		if c.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(c.Language))
		}
		n, err := whisper.NewNative(c.ModelPath, opts...)
		if err != nil {
			return nil, noop, err
		}
		return n, func() {
			if err := n.Close(); err != nil {
				slog.Warn("backend close error", "err", err)
			}
		}, nil

	default:
		return nil, noop, fmt.Errorf("unknown backend %q (valid: %s)",
			name, strings.Join(config.ValidBackendNames, ", "))
	}
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.Notify.Enabled {
		return notify.Noop{}
	}
	return notify.NewDesktop(slog.Default())
}

func buildSinks(cfg *config.Config, outputPath string, toClipboard, silent bool) output.Multi {
	sinks := output.Multi{output.Stdout{W: os.Stdout, Markers: silent}}
	if outputPath != "" {
		sinks = append(sinks, output.File{Path: outputPath})
	}
	if toClipboard {
		sinks = append(sinks, output.Clipboard{})
	}
	if cfg.Output.TranscriptionsDir != "" {
		sinks = append(sinks, output.Dir{Path: cfg.Output.TranscriptionsDir})
	}
	return sinks
}

// listInputDevices prints the available capture devices.
func listInputDevices() int {
	devices, err := audio.InputDevices()
	if err != nil {
		slog.Error("failed to enumerate audio devices", "err", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Println("no input devices found")
		return 0
	}
	for _, d := range devices {
		fmt.Printf("%3d: %s (%d ch)\n", d.Index, d.Name, d.Channels)
	}
	return 0
}

// renderLevel draws a one-line level meter on stderr, redrawn in place.
func renderLevel(level float32) {
	const width = 30
	filled := int(level * width)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	fmt.Fprintf(os.Stderr, "\r[%s] %.2f", bar, level)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
