// Package vad implements the level-based voice activity detector that decides
// when a recording should stop on its own.
//
// The detector is a small state machine, the [Gate]. It consumes one
// (level, elapsed) sample per captured chunk and classifies the stream as
// waiting-for-speech, speaking, or silent. When sustained silence follows
// sustained speech it emits a single stop request for the whole session.
//
// The gate is a pure function of its inputs plus internal state: it performs
// no I/O and knows nothing about devices, buffers, or UI. The capture loop
// feeds it synchronously, so no locking is needed.
package vad

import (
	"fmt"
	"time"
)

// Default gate parameters, matching the interactive recorder defaults.
const (
	DefaultThreshold        = 0.1
	DefaultSilenceDuration  = 5 * time.Second
	DefaultMinRecordingTime = 3 * time.Second
)

// Config holds the silence-gate parameters. The zero value is not usable;
// fill in the fields or start from the defaults and call [Config.Validate].
type Config struct {
	// Enabled controls whether the gate may ever request a stop. When false
	// the gate still classifies samples (for the level-meter UI) but never
	// fires.
	Enabled bool

	// Threshold is the normalized level (0..1) above which a sample counts
	// as speech.
	Threshold float64

	// SilenceDuration is how long the level must stay at or below Threshold,
	// after speech was heard, before the gate requests a stop.
	SilenceDuration time.Duration

	// MinRecordingTime suppresses all gate activity for this long after the
	// session starts, so setup noise or a slow start never ends a recording.
	MinRecordingTime time.Duration

	// Gain is the level-meter scaling factor the thresholds were tuned
	// against. It is carried here so callers configure the meter and the gate
	// from one place; the gate itself never uses it.
	Gain float64
}

// Validate checks cfg for out-of-range values.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("vad: threshold %.3f out of range [0, 1]", c.Threshold)
	}
	if c.SilenceDuration < 0 {
		return fmt.Errorf("vad: silence_duration must not be negative")
	}
	if c.MinRecordingTime < 0 {
		return fmt.Errorf("vad: min_recording_time must not be negative")
	}
	return nil
}

// State is the gate's classification of the stream.
type State int

const (
	// WaitingForSpeech means no speech has been heard yet. A session that
	// never leaves this state never auto-stops.
	WaitingForSpeech State = iota

	// Speaking means the most recent sample was above the threshold.
	Speaking

	// Silence means the level dropped below the threshold after speech.
	Silence
)

// String returns a human-readable state name for logs and UI.
func (s State) String() string {
	switch s {
	case WaitingForSpeech:
		return "waiting"
	case Speaking:
		return "speaking"
	case Silence:
		return "silence"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Decision is the gate's output for one sample.
type Decision struct {
	// State is the classification after consuming the sample.
	State State

	// SilenceElapsed is how long the current silence run has lasted. Zero
	// unless State is Silence.
	SilenceElapsed time.Duration

	// StopRequested is set exactly once per session, on the sample where the
	// silence run first reaches the configured duration.
	StopRequested bool
}

// Gate decides when sustained silence after speech should end a recording.
// Not safe for concurrent use; feed it from a single goroutine.
type Gate struct {
	cfg Config

	state        State
	silenceStart time.Duration
	fired        bool
}

// NewGate returns a gate in the WaitingForSpeech state.
func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg, state: WaitingForSpeech}
}

// State returns the gate's current classification.
func (g *Gate) State() State { return g.state }

// Feed consumes one level sample taken at the given offset from session start
// and returns the resulting decision.
//
// Transitions:
//   - Before MinRecordingTime has elapsed the sample is ignored entirely.
//   - WaitingForSpeech moves to Speaking on the first above-threshold level
//     and otherwise stays put forever.
//   - Speaking moves to Silence when the level drops to the threshold or
//     below, recording the start of the silence run.
//   - Silence returns to Speaking on any above-threshold level; otherwise,
//     once the run reaches SilenceDuration, the gate fires StopRequested and
//     freezes. It never fires a second time.
func (g *Gate) Feed(level float32, elapsed time.Duration) Decision {
	if g.fired {
		// Frozen after firing; keep reporting the final classification.
		return Decision{State: g.state, SilenceElapsed: elapsed - g.silenceStart}
	}

	// Warm-up: auto-stop cannot fire and speech is not latched yet.
	if elapsed < g.cfg.MinRecordingTime {
		return Decision{State: g.state}
	}

	speech := float64(level) > g.cfg.Threshold

	switch g.state {
	case WaitingForSpeech:
		if speech {
			g.state = Speaking
		}

	case Speaking:
		if !speech {
			g.state = Silence
			g.silenceStart = elapsed
		}

	case Silence:
		if speech {
			// Silence was transient.
			g.state = Speaking
			g.silenceStart = 0
			break
		}
		run := elapsed - g.silenceStart
		if g.cfg.Enabled && run >= g.cfg.SilenceDuration {
			g.fired = true
			return Decision{State: Silence, SilenceElapsed: run, StopRequested: true}
		}
	}

	d := Decision{State: g.state}
	if g.state == Silence {
		d.SilenceElapsed = elapsed - g.silenceStart
	}
	return d
}
