package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Compile-time assertion that Device satisfies ChunkReader.
var _ ChunkReader = (*Device)(nil)

// Device is an open PortAudio microphone stream. It owns no business logic:
// it reads fixed-size chunks and converts them to little-endian PCM bytes.
//
// ReadChunk must only be called from a single goroutine (the capture loop).
// Close may be called from any goroutine and is idempotent.
type Device struct {
	params Params
	stream *portaudio.Stream
	buf    []int16

	closeOnce sync.Once
	closeErr  error
}

// Open initializes PortAudio and opens an input stream with the given
// parameters. It fails fast with [ErrDeviceUnavailable] when no input device
// exists or the stream cannot be opened; no handle is created in that case.
func Open(p Params) (ChunkReader, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("audio: invalid params: %w", err)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", ErrDeviceUnavailable, err)
	}

	buf := make([]int16, p.ChunkSize*p.Channels)

	stream, err := openStream(p, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: open stream: %v", ErrDeviceUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: start stream: %v", ErrDeviceUnavailable, err)
	}

	return &Device{params: p, stream: stream, buf: buf}, nil
}

// openStream opens either the default input stream or, when a device index is
// configured, the specific input device with low-latency parameters.
func openStream(p Params, buf []int16) (*portaudio.Stream, error) {
	if p.DeviceIndex == nil {
		return portaudio.OpenDefaultStream(p.Channels, 0, float64(p.SampleRate), p.ChunkSize, buf)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	idx := *p.DeviceIndex
	if idx < 0 || idx >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range (have %d devices)", idx, len(devices))
	}

	sp := portaudio.LowLatencyParameters(devices[idx], nil)
	sp.Input.Channels = p.Channels
	sp.SampleRate = float64(p.SampleRate)
	sp.FramesPerBuffer = p.ChunkSize
	return portaudio.OpenStream(sp, buf)
}

// ReadChunk blocks until one full chunk has been captured and returns it as
// little-endian PCM bytes. A driver-level input overflow is tolerated: the
// chunk read so far is returned as a best-effort result and the overflow is
// logged at debug level. Any other error is wrapped in [ErrReadFailed].
func (d *Device) ReadChunk() (Frame, error) {
	if err := d.stream.Read(); err != nil {
		if err == portaudio.InputOverflowed {
			// One dropped sample window is acceptable; keep the chunk.
			slog.Debug("audio: input overflow, keeping best-effort chunk")
		} else {
			return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
		}
	}

	frame := make(Frame, len(d.buf)*bytesPerSample)
	for i, s := range d.buf {
		frame[2*i] = byte(s)
		frame[2*i+1] = byte(s >> 8)
	}
	return frame, nil
}

// Close stops the stream and terminates PortAudio. Safe to call multiple
// times; subsequent calls return the result of the first.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		if err := d.stream.Stop(); err != nil {
			d.closeErr = fmt.Errorf("audio: stop stream: %w", err)
		}
		if err := d.stream.Close(); err != nil && d.closeErr == nil {
			d.closeErr = fmt.Errorf("audio: close stream: %w", err)
		}
		portaudio.Terminate()
	})
	return d.closeErr
}

// DeviceInfo describes one available input device.
type DeviceInfo struct {
	// Index is the PortAudio device index, usable as Params.DeviceIndex.
	Index int

	// Name is the driver-reported device name.
	Name string

	// Channels is the maximum input channel count.
	Channels int
}

// InputDevices returns all available input devices. Used by the CLI's
// --list-devices flag.
func InputDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", ErrDeviceUnavailable, err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: list devices: %w", err)
	}
	var infos []DeviceInfo
	for i, dev := range devices {
		if dev.MaxInputChannels > 0 {
			infos = append(infos, DeviceInfo{Index: i, Name: dev.Name, Channels: dev.MaxInputChannels})
		}
	}
	return infos, nil
}
