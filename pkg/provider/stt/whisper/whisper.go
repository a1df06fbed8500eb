// Package whisper provides whisper.cpp-backed transcription backends.
//
// Two implementations are available. [Server] talks to a running
// whisper-server binary over its REST API (POST /inference); [Native] loads
// the model in-process through the whisper.cpp CGO bindings, eliminating the
// HTTP hop at the cost of a link-time dependency on libwhisper. The native
// backend is only compiled in when building with the whisper_native tag;
// otherwise [NewNative] returns [ErrNativeUnavailable].
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/Jakub3628800/s2t/pkg/provider/stt"
)

const defaultLanguage = "en"

// ErrNativeUnavailable is returned by [NewNative] when the binary was built
// without the whisper_native tag.
var ErrNativeUnavailable = errors.New("whisper: native backend not compiled in (build with -tags whisper_native)")

// Compile-time assertion that Server implements stt.Backend.
var _ stt.Backend = (*Server)(nil)

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g. "base.en"). When empty the server uses whichever model it was
// started with.
func WithModel(model string) Option {
	return func(s *Server) { s.model = model }
}

// WithLanguage sets the BCP-47 language code sent to the server. Defaults
// to "en".
func WithLanguage(lang string) Option {
	return func(s *Server) { s.language = lang }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 60 s, sized for
// long recordings on CPU-only servers.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.httpClient.Timeout = d }
}

// Server implements stt.Backend against a local whisper.cpp HTTP server.
type Server struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// NewServer creates a backend that posts recordings to the whisper.cpp
// server at serverURL (e.g. "http://localhost:8080").
func NewServer(serverURL string, opts ...Option) (*Server, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	s := &Server{
		serverURL:  serverURL,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Name implements stt.Backend.
func (s *Server) Name() string { return "whisper_server" }

// Available reports whether a server URL is configured. No probe request is
// made; a down server surfaces as a Transcribe error instead.
func (s *Server) Available() bool { return s.serverURL != "" }

// Transcribe uploads the WAV file at path to the server's /inference
// endpoint as multipart/form-data and returns the transcribed text.
func (s *Server) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("whisper: open recording: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", fmt.Errorf("whisper: read recording: %w", err)
	}
	if s.language != "" {
		if err := mw.WriteField("language", s.language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if s.model != "" {
		if err := mw.WriteField("model", s.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := s.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}
	return result.Text, nil
}
