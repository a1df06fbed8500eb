// Package stt defines the speech-to-text backend interface consumed by the
// s2t front ends.
//
// A backend transcribes a finished WAV recording in one batch call. The
// capture engine knows nothing about backends; it hands over a file path and
// the caller picks the backend. Implementations live in subpackages:
//
//   - openai: the OpenAI Whisper API (the default).
//   - whisper: a local whisper.cpp server speaking its REST protocol.
//   - whisper (native): in-process whisper.cpp via CGO bindings.
package stt

import "context"

// Backend converts a recorded WAV file to text.
//
// Implementations must be safe for concurrent use; the front ends may probe
// Available while a Transcribe call is in flight.
type Backend interface {
	// Name identifies the backend in logs and config (e.g. "whisper_api").
	Name() string

	// Available reports whether the backend is configured well enough to
	// attempt a transcription (API key present, server URL set, model
	// loaded). It performs no network calls.
	Available() bool

	// Transcribe converts the WAV file at path to text. An empty string with
	// a nil error means the backend heard nothing transcribable.
	Transcribe(ctx context.Context, path string) (string, error)
}
