// Package observe provides observability primitives for s2t: OpenTelemetry
// metrics with a Prometheus exporter bridge, and tracing helpers for the
// record-and-transcribe pipeline.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all s2t metrics.
const meterName = "github.com/Jakub3628800/s2t"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// CaptureDuration tracks the audio duration of finished recordings.
	CaptureDuration metric.Float64Histogram

	// TranscriptionDuration tracks transcription backend latency. Use with
	// attribute.String("backend", ...).
	TranscriptionDuration metric.Float64Histogram

	// FramesCaptured counts PCM chunks captured across all sessions.
	FramesCaptured metric.Int64Counter

	// Recordings counts finished recording sessions. Use with
	// attribute.String("outcome", ...): "auto_stop", "manual", "empty",
	// "error".
	Recordings metric.Int64Counter

	// DeviceErrors counts capture device failures.
	DeviceErrors metric.Int64Counter

	// ActiveSessions tracks the number of live capture sessions (0 or 1 in
	// normal use).
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// recording durations and batch transcription calls.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CaptureDuration, err = m.Float64Histogram("s2t.capture.duration",
		metric.WithDescription("Audio duration of finished recordings."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("s2t.transcription.duration",
		metric.WithDescription("Latency of speech-to-text transcription by backend."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FramesCaptured, err = m.Int64Counter("s2t.capture.frames",
		metric.WithDescription("Total PCM chunks captured."),
	); err != nil {
		return nil, err
	}
	if met.Recordings, err = m.Int64Counter("s2t.recordings",
		metric.WithDescription("Finished recording sessions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.DeviceErrors, err = m.Int64Counter("s2t.device.errors",
		metric.WithDescription("Capture device failures."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("s2t.active_sessions",
		metric.WithDescription("Number of live capture sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordRecording records a finished session with its outcome and duration.
func (m *Metrics) RecordRecording(ctx context.Context, outcome string, seconds float64) {
	m.Recordings.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
	if seconds > 0 {
		m.CaptureDuration.Record(ctx, seconds)
	}
}

// RecordTranscription records one backend call's latency and status.
func (m *Metrics) RecordTranscription(ctx context.Context, backend, status string, seconds float64) {
	m.TranscriptionDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("status", status),
		),
	)
}
