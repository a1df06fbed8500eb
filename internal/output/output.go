// Package output routes finished transcripts to their destinations: stdout,
// the system clipboard, an explicit output file, or a per-recording file in
// the transcriptions directory. Multiple sinks can be active at once.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
)

// Sink receives a finished transcript.
type Sink interface {
	// Write delivers the transcript text. Implementations should be
	// idempotent per call and must not modify the text.
	Write(text string) error
}

// Stdout prints the transcript to a writer, plain or wrapped in machine
// parseable markers for headless callers.
type Stdout struct {
	// W is the destination writer, typically [os.Stdout].
	W io.Writer

	// Markers wraps the transcript as
	// "TRANSCRIPTION_START:<text>:TRANSCRIPTION_END" so scripts can extract
	// it from interleaved log output.
	Markers bool
}

var _ Sink = Stdout{}

func (s Stdout) Write(text string) error {
	w := s.W
	if w == nil {
		w = os.Stdout
	}
	var err error
	if s.Markers {
		_, err = fmt.Fprintf(w, "TRANSCRIPTION_START:%s:TRANSCRIPTION_END\n", text)
	} else {
		_, err = fmt.Fprintln(w, text)
	}
	return err
}

// Clipboard copies the transcript to the system clipboard.
type Clipboard struct{}

var _ Sink = Clipboard{}

func (Clipboard) Write(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// File writes the transcript to a fixed path, replacing any previous content.
type File struct {
	// Path is the destination file.
	Path string
}

var _ Sink = File{}

func (f File) Write(text string) error {
	if err := os.WriteFile(f.Path, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write transcript file: %w", err)
	}
	return nil
}

// Dir saves each transcript to a timestamped file inside a directory,
// creating the directory on first use.
type Dir struct {
	// Path is the transcriptions directory.
	Path string

	// now allows tests to pin the timestamp. Nil means [time.Now].
	now func() time.Time
}

var _ Sink = (*Dir)(nil)

func (d Dir) Write(text string) error {
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("create transcriptions dir: %w", err)
	}
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	name := fmt.Sprintf("transcription_%s.txt", now().Format("20060102_150405"))
	path := filepath.Join(d.Path, name)
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write transcript file: %w", err)
	}
	return nil
}

// Multi fans a transcript out to every sink, attempting all of them even
// when some fail. Errors are joined.
type Multi []Sink

var _ Sink = Multi(nil)

func (m Multi) Write(text string) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
