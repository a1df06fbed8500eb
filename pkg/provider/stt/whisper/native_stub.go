//go:build !whisper_native

package whisper

import (
	"context"

	"github.com/Jakub3628800/s2t/pkg/provider/stt"
)

// Compile-time assertion that the stub still implements stt.Backend.
var _ stt.Backend = (*Native)(nil)

// Native is a stub that satisfies stt.Backend when the binary was built
// without the whisper.cpp bindings.
type Native struct{}

// NativeOption is a functional option for configuring a Native backend.
type NativeOption func(*Native)

// WithNativeLanguage is accepted for parity with the whisper_native build
// and has no effect in the stub.
func WithNativeLanguage(string) NativeOption {
	return func(*Native) {}
}

// NewNative always fails: the in-process backend needs the whisper.cpp
// bindings linked in.
func NewNative(modelPath string, opts ...NativeOption) (*Native, error) {
	return nil, ErrNativeUnavailable
}

// Name implements stt.Backend.
func (n *Native) Name() string { return "whisper_native" }

// Available reports false; the model cannot be loaded in this build.
func (n *Native) Available() bool { return false }

// Close implements stt.Backend resource cleanup and is a no-op.
func (n *Native) Close() error { return nil }

// Transcribe always returns ErrNativeUnavailable.
func (n *Native) Transcribe(context.Context, string) (string, error) {
	return "", ErrNativeUnavailable
}
