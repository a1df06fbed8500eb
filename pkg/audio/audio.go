// Package audio provides microphone capture primitives for the s2t engine:
// the PortAudio-backed input device, the frame buffer that accumulates
// captured PCM, the RMS level meter, and WAV serialization.
//
// All audio flowing through this package is 16-bit signed little-endian PCM.
// The atomic unit of capture is a [Frame]: one fixed-size chunk of samples
// read from the device in a single blocking call.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// Default capture parameters. These match what the transcription backends
// expect (whisper models are trained on 16 kHz mono audio).
const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
	DefaultChunkSize  = 1024
)

// bytesPerSample is fixed at 2 for 16-bit PCM.
const bytesPerSample = 2

// Errors returned by [Open] and [Device.ReadChunk].
var (
	// ErrDeviceUnavailable indicates no usable input device exists or access
	// to it was denied. Returned by Open; no device handle is created.
	ErrDeviceUnavailable = errors.New("audio: input device unavailable")

	// ErrReadFailed indicates a terminal device read failure. Single transient
	// overflows are tolerated by ReadChunk and never surface this error.
	ErrReadFailed = errors.New("audio: device read failed")
)

// Params describes how the microphone should be captured.
type Params struct {
	// SampleRate in Hz. Defaults to 16000 when zero.
	SampleRate int

	// Channels is the input channel count. Defaults to 1 (mono) when zero.
	Channels int

	// ChunkSize is the number of samples per channel read in one blocking
	// device call. Defaults to 1024 when zero.
	ChunkSize int

	// DeviceIndex selects a specific input device. When nil the system
	// default input device is used.
	DeviceIndex *int
}

// withDefaults returns a copy of p with zero fields replaced by defaults.
func (p Params) withDefaults() Params {
	if p.SampleRate == 0 {
		p.SampleRate = DefaultSampleRate
	}
	if p.Channels == 0 {
		p.Channels = DefaultChannels
	}
	if p.ChunkSize == 0 {
		p.ChunkSize = DefaultChunkSize
	}
	return p
}

// Validate checks that p holds a usable combination of values.
func (p Params) Validate() error {
	var errs []error
	if p.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("sample_rate %d must be positive", p.SampleRate))
	}
	if p.Channels < 0 || p.Channels > 2 {
		errs = append(errs, fmt.Errorf("channels %d must be 1 or 2", p.Channels))
	}
	if p.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("chunk_size %d must be positive", p.ChunkSize))
	}
	return errors.Join(errs...)
}

// ChunkDuration returns the nominal wall-clock duration of one captured chunk.
func (p Params) ChunkDuration() time.Duration {
	p = p.withDefaults()
	return time.Duration(p.ChunkSize) * time.Second / time.Duration(p.SampleRate)
}

// BytesPerChunk returns the byte length of one full chunk of 16-bit PCM.
func (p Params) BytesPerChunk() int {
	p = p.withDefaults()
	return p.ChunkSize * p.Channels * bytesPerSample
}

// BytesPerSecond returns the PCM byte rate for these parameters.
func (p Params) BytesPerSecond() int {
	p = p.withDefaults()
	return p.SampleRate * p.Channels * bytesPerSample
}
