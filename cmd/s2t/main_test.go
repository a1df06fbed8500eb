package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Jakub3628800/s2t/internal/config"
	"github.com/Jakub3628800/s2t/internal/notify"
	"github.com/Jakub3628800/s2t/internal/observe"
	"github.com/Jakub3628800/s2t/pkg/audio"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader so the
// pipeline helpers can be inspected without the global provider.
func newTestMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// counterValue returns the current value of an int64 counter, or 0 when the
// metric has no recordings yet.
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != name {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q is not a sum", name)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

// stubBackend returns a canned transcript.
type stubBackend struct {
	text string
	err  error
}

func (s stubBackend) Name() string    { return "stub" }
func (s stubBackend) Available() bool { return true }

func (s stubBackend) Transcribe(context.Context, string) (string, error) {
	return s.text, s.err
}

func TestRecord_CountsDeviceErrors(t *testing.T) {
	m, reader := newTestMetrics(t)

	open := func(audio.Params) (audio.ChunkReader, error) {
		return nil, fmt.Errorf("%w: no capture hardware", audio.ErrDeviceUnavailable)
	}
	_, err := record(context.Background(), config.Default(), m, notify.Noop{}, 0, true, open)
	if !errors.Is(err, audio.ErrDeviceUnavailable) {
		t.Fatalf("record err = %v, want ErrDeviceUnavailable", err)
	}
	if got := counterValue(t, reader, "s2t.device.errors"); got != 1 {
		t.Errorf("device errors = %d, want 1", got)
	}
}

func TestRecord_StateFailureIsNotADeviceError(t *testing.T) {
	m, reader := newTestMetrics(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	open := func(audio.Params) (audio.ChunkReader, error) {
		t.Fatal("device opened despite cancelled context")
		return nil, nil
	}
	_, err := record(ctx, config.Default(), m, notify.Noop{}, 0, true, open)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("record err = %v, want context.Canceled", err)
	}
	if got := counterValue(t, reader, "s2t.device.errors"); got != 0 {
		t.Errorf("device errors = %d, want 0", got)
	}
}

func TestTranscribe_EmitsSpan(t *testing.T) {
	m, _ := newTestMetrics(t)

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	path := filepath.Join(t.TempDir(), "in.wav")
	pcm := make([]byte, 3200)
	if err := audio.WriteWAV(path, pcm, audio.Params{}); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	text, err := transcribe(context.Background(), stubBackend{text: "  hello  "}, m, path)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q, want %q", text, "hello")
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "transcribe" {
		t.Errorf("span name = %q, want %q", span.Name, "transcribe")
	}
	attrs := map[string]string{}
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	if attrs["backend"] != "stub" {
		t.Errorf("backend attribute = %q, want %q", attrs["backend"], "stub")
	}
	if attrs["status"] != "ok" {
		t.Errorf("status attribute = %q, want %q", attrs["status"], "ok")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := config.Default()
	applyFlagOverrides(cfg, flagOverrides{
		recordTime:       2.5,
		silenceThreshold: 0.2,
		silenceDuration:  -1,
		minRecordingTime: -1,
		silent:           true,
	})

	if cfg.Recorder.VADEnabled {
		t.Error("a fixed recording time must disable silence detection")
	}
	if cfg.Recorder.SilenceThreshold != 0.2 {
		t.Errorf("threshold = %v, want 0.2", cfg.Recorder.SilenceThreshold)
	}
	if cfg.Recorder.SilenceDuration != config.Default().Recorder.SilenceDuration {
		t.Error("negative duration override must not change the config")
	}
	if cfg.Notify.Enabled {
		t.Error("silent mode must disable notifications")
	}
}
