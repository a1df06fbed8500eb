// This file contains the Native backend built on the whisper.cpp CGO
// bindings. It is compiled in only when building with the whisper_native
// tag, because the bindings need the whisper.cpp static library
// (libwhisper.a) and headers (whisper.h) at link time, located via the
// LIBRARY_PATH and C_INCLUDE_PATH environment variables.

//go:build whisper_native

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-audio/wav"

	"github.com/Jakub3628800/s2t/pkg/provider/stt"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Compile-time assertion that Native implements stt.Backend.
var _ stt.Backend = (*Native)(nil)

// Native implements stt.Backend in-process using the whisper.cpp Go
// bindings. The model is loaded once in NewNative and shared across calls;
// each Transcribe creates its own whisper context, so concurrent calls are
// safe.
type Native struct {
	model    whisperlib.Model
	language string
}

// NativeOption is a functional option for configuring a Native backend.
type NativeOption func(*Native)

// WithNativeLanguage sets the BCP-47 language code for transcription.
// Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(n *Native) { n.language = lang }
}

// NewNative loads the whisper.cpp model from modelPath. The caller must call
// Close when the backend is no longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*Native, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	n := &Native{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Name implements stt.Backend.
func (n *Native) Name() string { return "whisper_native" }

// Available reports whether the model loaded.
func (n *Native) Available() bool { return n.model != nil }

// Close releases the whisper model.
func (n *Native) Close() error {
	if n.model != nil {
		return n.model.Close()
	}
	return nil
}

// Transcribe decodes the WAV file at path, runs whisper.cpp inference on a
// fresh context, and returns the concatenated segment text.
func (n *Native) Transcribe(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}

	samples, err := decodeWAVFloat32(path)
	if err != nil {
		return "", err
	}

	// Each context is not thread-safe, but the model is shared safely.
	wctx, err := n.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(n.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", n.language, "err", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// decodeWAVFloat32 reads a 16-bit PCM WAV file and returns mono float32
// samples normalized to [-1, 1], the input format whisper.cpp expects.
// Multi-channel audio is down-mixed by averaging.
func decodeWAVFloat32(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("whisper: open recording: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("whisper: decode wav %q: %w", path, err)
	}

	channels := buf.Format.NumChannels
	if channels <= 1 {
		samples := make([]float32, len(buf.Data))
		for i, v := range buf.Data {
			samples[i] = float32(v) / 32768.0
		}
		return samples, nil
	}

	frames := len(buf.Data) / channels
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			sum += float32(buf.Data[i*channels+ch]) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono, nil
}
