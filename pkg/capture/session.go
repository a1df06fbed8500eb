// Package capture orchestrates microphone recording: it runs the capture
// loop on a dedicated goroutine, feeds the silence gate, and finalizes the
// accumulated audio into a WAV artifact.
//
// A [Session] is single-use: construct one per recording with [New], call
// Start, and end it through Stop (directly, via the gate's auto-stop, or
// through a [Bridge] trigger). All stop paths converge on one finalization
// routine, so double stops are harmless and the device is never released
// twice.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Jakub3628800/s2t/pkg/audio"
	"github.com/Jakub3628800/s2t/pkg/vad"
)

// ErrAlreadyRecording is returned by Start when the session is active.
var ErrAlreadyRecording = errors.New("capture: recording already in progress")

// DefaultJoinTimeout bounds how long Stop waits for the capture goroutine to
// observe the stop flag before proceeding with best-effort cleanup.
const DefaultJoinTimeout = 2 * time.Second

// maxConsecutiveReadFailures is the number of back-to-back device read errors
// tolerated before the session ends in an errored state. Isolated failures
// skip the frame and keep recording.
const maxConsecutiveReadFailures = 3

// State is the session lifecycle phase.
type State int

const (
	Idle State = iota
	Recording
	Finalizing
	Closed
	Errored
)

// Artifact is the terminal output of a completed session: a WAV file plus
// the capture metadata needed to interpret it. Ownership passes to the
// caller; the session retains no reference after finalization.
type Artifact struct {
	// Path of the written WAV file.
	Path string

	// SampleRate and Channels match the capture parameters and WAV header.
	SampleRate int
	Channels   int

	// Duration of the captured audio.
	Duration time.Duration

	// Frames is the number of chunks captured.
	Frames int
}

// Events are optional callbacks fired from inside the engine. OnLevel and
// OnStateChange run on the capture goroutine once per chunk and must return
// quickly; OnFinished runs once, on whichever goroutine completes
// finalization. Any field may be nil.
type Events struct {
	// OnLevel reports the normalized loudness of each captured chunk, for a
	// live level meter.
	OnLevel func(level float32)

	// OnStateChange reports the gate classification after each chunk, with
	// the elapsed silence run when the state is [vad.Silence].
	OnStateChange func(state vad.State, silence time.Duration)

	// OnFinished reports the terminal outcome. The artifact is nil when
	// nothing was captured.
	OnFinished func(artifact *Artifact, err error)
}

// Options tune a session beyond the audio and gate parameters.
type Options struct {
	// Open creates the capture device. Defaults to [audio.Open]; tests
	// substitute fakes.
	Open audio.Opener

	// Events holds the optional callback surface.
	Events Events

	// OutputPath is where the WAV artifact is written. When empty a
	// timestamped file in the system temp directory is used.
	OutputPath string

	// JoinTimeout overrides [DefaultJoinTimeout] when positive.
	JoinTimeout time.Duration
}

// Session is the capture controller. Create with [New]; a Session must not
// be reused after it reaches Closed or Errored.
type Session struct {
	params  audio.Params
	gateCfg vad.Config
	opts    Options
	meter   *audio.Meter

	mu     sync.Mutex
	state  State
	device audio.ChunkReader
	start  time.Time

	buffer   *audio.FrameBuffer
	stopFlag atomic.Bool
	loopDone chan struct{}
	done     chan struct{}

	finalizeOnce sync.Once
	artifact     *Artifact
	err          error
}

// New constructs an idle session. Start must be called to begin capturing.
func New(gateCfg vad.Config, params audio.Params, opts Options) *Session {
	if opts.Open == nil {
		opts.Open = audio.Open
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = DefaultJoinTimeout
	}
	return &Session{
		params:  params,
		gateCfg: gateCfg,
		opts:    opts,
		meter:   audio.NewMeter(gateCfg.Gain),
		buffer:  audio.NewFrameBuffer(),
		done:    make(chan struct{}),
	}
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens the device and spawns the capture goroutine. It returns
// [ErrAlreadyRecording] when the session is already active and
// [audio.ErrDeviceUnavailable] (wrapped) when the device cannot be opened;
// in the latter case no goroutine is spawned and the caller may retry with
// a fresh session.
func (s *Session) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("capture: start: %w", err)
	}
	if err := s.gateCfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Recording {
		return ErrAlreadyRecording
	}
	if s.state != Idle {
		return fmt.Errorf("capture: session already finished (state %d)", s.state)
	}

	device, err := s.opts.Open(s.params)
	if err != nil {
		return fmt.Errorf("capture: open device: %w", err)
	}

	s.device = device
	s.start = time.Now()
	s.state = Recording
	s.loopDone = make(chan struct{})

	go s.captureLoop()

	slog.Info("recording started",
		"sample_rate", s.params.SampleRate,
		"channels", s.params.Channels,
		"vad_enabled", s.gateCfg.Enabled,
	)
	return nil
}

// captureLoop is the dedicated capture goroutine: read one chunk, buffer it,
// meter it, feed the gate, repeat until the stop flag is observed. The loop
// always finishes its in-flight read before honoring a stop, so audio is
// never torn mid-chunk.
func (s *Session) captureLoop() {
	defer close(s.loopDone)

	gate := vad.NewGate(s.gateCfg)
	readFailures := 0

	for !s.stopFlag.Load() {
		frame, err := s.device.ReadChunk()
		if err != nil {
			readFailures++
			if readFailures < maxConsecutiveReadFailures {
				slog.Warn("device read failed, skipping frame", "err", err, "consecutive", readFailures)
				continue
			}
			// Terminal: preserve what was captured and end errored.
			slog.Error("repeated device read failures, ending session", "err", err)
			s.setError(fmt.Errorf("capture: %w", err))
			s.stopFlag.Store(true)
			break
		}
		readFailures = 0

		s.buffer.Append(frame)

		level := s.meter.Level(frame)
		if s.opts.Events.OnLevel != nil {
			s.opts.Events.OnLevel(level)
		}

		d := gate.Feed(level, time.Since(s.start))
		if s.opts.Events.OnStateChange != nil {
			s.opts.Events.OnStateChange(d.State, d.SilenceElapsed)
		}
		if d.StopRequested {
			slog.Info("auto-stop: silence after speech",
				"silence", d.SilenceElapsed.Round(100*time.Millisecond),
			)
			s.stopFlag.Store(true)
		}
	}

	// The loop goroutine drives finalization for auto-stop and errored
	// endings. For an external Stop this is a no-op race loser: the Once in
	// finalize keeps exactly one winner.
	s.finalize()
}

// Stop requests termination, waits (bounded) for the capture goroutine, and
// finalizes. It is idempotent: concurrent and repeated calls all return the
// result of the single finalization. Stop on a never-started session returns
// (nil, nil).
func (s *Session) Stop() (*Artifact, error) {
	s.mu.Lock()
	if s.state == Idle {
		s.mu.Unlock()
		return nil, nil
	}
	loopDone := s.loopDone
	s.mu.Unlock()

	s.stopFlag.Store(true)

	select {
	case <-loopDone:
	case <-time.After(s.opts.JoinTimeout):
		// Proceed with best-effort cleanup; partial frames are still written.
		slog.Warn("capture goroutine did not stop in time, finalizing anyway",
			"timeout", s.opts.JoinTimeout,
		)
	}

	s.finalize()
	<-s.done
	return s.artifact, s.err
}

// Wait blocks until finalization completes through any stop path. It is the
// await-completion entry point for synchronous callers such as the CLI.
func (s *Session) Wait(ctx context.Context) (*Artifact, error) {
	select {
	case <-s.done:
		return s.artifact, s.err
	case <-ctx.Done():
		return nil, fmt.Errorf("capture: wait: %w", ctx.Err())
	}
}

// Done returns a channel closed when the session has finalized.
func (s *Session) Done() <-chan struct{} { return s.done }

// setError records the first terminal error.
func (s *Session) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// finalize serializes the buffer to a WAV file, releases the device, and
// publishes the result. Exactly one caller runs the body; everyone else
// waits on s.done.
func (s *Session) finalize() {
	s.finalizeOnce.Do(func() {
		defer close(s.done)

		s.mu.Lock()
		s.state = Finalizing
		errored := s.err != nil
		s.mu.Unlock()

		duration := s.buffer.Duration(s.params)
		frames := s.buffer.Len()
		pcm := s.buffer.TakeAll()

		if len(pcm) > 0 {
			path := s.opts.OutputPath
			if path == "" {
				name := fmt.Sprintf("s2t_recording_%s.wav", time.Now().Format("20060102_150405"))
				path = filepath.Join(os.TempDir(), name)
			}
			if err := audio.WriteWAV(path, pcm, s.params); err != nil {
				s.setError(err)
			} else {
				s.artifact = &Artifact{
					Path:       path,
					SampleRate: s.params.SampleRate,
					Channels:   s.params.Channels,
					Duration:   duration,
					Frames:     frames,
				}
				slog.Info("recording saved",
					"path", path,
					"duration", duration.Round(10*time.Millisecond),
					"frames", frames,
				)
			}
		} else {
			// Nothing captured. Not an error: the caller gets a nil artifact.
			slog.Info("recording stopped with no audio captured")
		}

		if err := s.device.Close(); err != nil {
			slog.Warn("device close error", "err", err)
		}

		s.mu.Lock()
		if errored || s.err != nil {
			s.state = Errored
		} else {
			s.state = Closed
		}
		artifact, err := s.artifact, s.err
		s.mu.Unlock()

		if s.opts.Events.OnFinished != nil {
			s.opts.Events.OnFinished(artifact, err)
		}
	})
}
