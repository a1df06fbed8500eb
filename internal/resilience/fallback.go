// Package resilience provides failure handling for transcription backends:
// a fallback chain that tries alternate backends when the preferred one
// fails.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jakub3628800/s2t/pkg/provider/stt"
)

// ErrAllFailed is returned when every backend in a [Fallback] chain fails.
var ErrAllFailed = errors.New("resilience: all backends failed")

// Compile-time interface assertion.
var _ stt.Backend = (*Fallback)(nil)

// Fallback implements [stt.Backend] with automatic failover across multiple
// backends. The primary is tried first; on error the fallbacks are tried in
// registration order. Unavailable backends are skipped.
//
// A recording is precious: it cannot be re-captured, so one flaky backend
// must not lose the transcript when another could produce it.
type Fallback struct {
	backends []stt.Backend
}

// NewFallback creates a chain with primary as the preferred backend.
// Additional backends are registered via [Fallback.Add].
func NewFallback(primary stt.Backend) *Fallback {
	return &Fallback{backends: []stt.Backend{primary}}
}

// Add appends a fallback backend. Fallbacks are tried in the order they are
// added, after the primary.
func (f *Fallback) Add(b stt.Backend) {
	f.backends = append(f.backends, b)
}

// Name lists the chained backend names, primary first.
func (f *Fallback) Name() string {
	names := make([]string, len(f.backends))
	for i, b := range f.backends {
		names[i] = b.Name()
	}
	return strings.Join(names, ",")
}

// Available reports whether at least one backend in the chain is available.
func (f *Fallback) Available() bool {
	for _, b := range f.backends {
		if b.Available() {
			return true
		}
	}
	return false
}

// Transcribe tries each backend in order until one returns a transcript.
// Context cancellation stops the chain immediately; a cancelled transcription
// must not be retried against the next backend. Returns [ErrAllFailed]
// wrapped with the last backend error when every attempt fails.
func (f *Fallback) Transcribe(ctx context.Context, path string) (string, error) {
	var lastErr error
	for _, b := range f.backends {
		if !b.Available() {
			slog.Debug("skipping unavailable backend", "backend", b.Name())
			continue
		}

		text, err := b.Transcribe(ctx, path)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("resilience: %w", err)
		}
		slog.Warn("backend failed, trying next", "backend", b.Name(), "err", err)
		lastErr = err
	}

	if lastErr == nil {
		return "", fmt.Errorf("%w: no backend available", ErrAllFailed)
	}
	return "", fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
