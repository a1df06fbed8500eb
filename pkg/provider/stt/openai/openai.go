// Package openai provides an stt.Backend backed by the OpenAI Whisper API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Jakub3628800/s2t/pkg/provider/stt"
)

const defaultModel = "whisper-1"

// Compile-time assertion that Backend implements stt.Backend.
var _ stt.Backend = (*Backend)(nil)

// Option is a functional option for configuring a Backend.
type Option func(*Backend)

// WithModel selects the transcription model. Defaults to "whisper-1".
func WithModel(model string) Option {
	return func(b *Backend) { b.model = model }
}

// WithLanguage sets the ISO-639-1 language hint (e.g. "en"). Empty means
// auto-detect.
func WithLanguage(lang string) Option {
	return func(b *Backend) { b.language = lang }
}

// WithTemperature sets the sampling temperature in [0, 1]. Defaults to 0.
func WithTemperature(t float64) Option {
	return func(b *Backend) { b.temperature = t }
}

// WithBaseURL overrides the default API base URL, for proxies and
// API-compatible servers.
func WithBaseURL(url string) Option {
	return func(b *Backend) { b.baseURL = url }
}

// Backend implements stt.Backend using the OpenAI audio transcription API.
type Backend struct {
	client      oai.Client
	apiKey      string
	baseURL     string
	model       string
	language    string
	temperature float64
}

// New constructs a Backend. When apiKey is empty the OPENAI_API_KEY
// environment variable is consulted; a backend without a key is constructed
// successfully but reports Available() == false.
func New(apiKey string, opts ...Option) *Backend {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	b := &Backend{
		apiKey: apiKey,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(b)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(2 * time.Minute),
	}
	if b.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(b.baseURL))
	}
	b.client = oai.NewClient(clientOpts...)
	return b
}

// Name implements stt.Backend.
func (b *Backend) Name() string { return "whisper_api" }

// Available reports whether an API key is configured.
func (b *Backend) Available() bool { return b.apiKey != "" }

// Transcribe uploads the WAV file at path to the transcription endpoint and
// returns the resulting text.
func (b *Backend) Transcribe(ctx context.Context, path string) (string, error) {
	if !b.Available() {
		return "", errors.New("openai: no API key configured (set OPENAI_API_KEY)")
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("openai: open recording: %w", err)
	}
	defer f.Close()

	params := oai.AudioTranscriptionNewParams{
		File:  f,
		Model: oai.AudioModel(b.model),
	}
	if b.language != "" {
		params.Language = oai.String(b.language)
	}
	if b.temperature > 0 {
		params.Temperature = oai.Float(b.temperature)
	}

	resp, err := b.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: transcription request: %w", err)
	}
	return resp.Text, nil
}
