//go:build !whisper_native

package whisper

import (
	"context"
	"errors"
	"testing"
)

func TestNewNative_NotCompiledIn(t *testing.T) {
	t.Parallel()

	n, err := NewNative("model.bin", WithNativeLanguage("de"))
	if !errors.Is(err, ErrNativeUnavailable) {
		t.Fatalf("NewNative err = %v, want ErrNativeUnavailable", err)
	}
	if n != nil {
		t.Fatalf("NewNative backend = %v, want nil", n)
	}
}

func TestNativeStub_NeverAvailable(t *testing.T) {
	t.Parallel()

	var n Native
	if got, want := n.Name(), "whisper_native"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
	if n.Available() {
		t.Error("stub reports available")
	}
	if _, err := n.Transcribe(context.Background(), "any.wav"); !errors.Is(err, ErrNativeUnavailable) {
		t.Errorf("Transcribe err = %v, want ErrNativeUnavailable", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Close err = %v", err)
	}
}
