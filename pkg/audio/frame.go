package audio

import (
	"sync"
	"time"
)

// Frame is a single chunk of captured 16-bit signed little-endian PCM.
// Frames are immutable once produced by the device; ordering is by arrival.
type Frame []byte

// Samples returns the number of 16-bit samples in the frame (all channels).
func (f Frame) Samples() int { return len(f) / bytesPerSample }

// ChunkReader is the read side of an open capture device. [Device] is the
// production implementation; tests substitute fakes that replay canned PCM.
type ChunkReader interface {
	// ReadChunk blocks until one full chunk is available and returns it.
	// A transient driver overflow yields a best-effort chunk, not an error.
	ReadChunk() (Frame, error)

	// Close releases the device. Safe to call more than once.
	Close() error
}

// Opener creates capture devices. The package-level [Open] function satisfies
// this signature; capture sessions take an Opener so tests can inject fakes.
type Opener func(Params) (ChunkReader, error)

// FrameBuffer is an ordered, append-only accumulator of captured frames.
// Appends happen on the capture goroutine while snapshots may be taken from
// the finalizing caller, so all access is mutex-guarded.
type FrameBuffer struct {
	mu     sync.Mutex
	frames []Frame
	bytes  int
}

// NewFrameBuffer returns an empty buffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Append adds one frame to the end of the buffer.
func (b *FrameBuffer) Append(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, f)
	b.bytes += len(f)
}

// Len returns the number of buffered frames.
func (b *FrameBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Size returns the total buffered PCM byte count.
func (b *FrameBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bytes
}

// Duration returns the audio duration represented by the buffered frames for
// the given capture parameters.
func (b *FrameBuffer) Duration(p Params) time.Duration {
	bps := p.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(b.Size()) * time.Second / time.Duration(bps)
}

// Bytes returns all buffered PCM concatenated into a single slice. The
// buffer's contents are unchanged.
func (b *FrameBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.concat()
}

// TakeAll returns all buffered PCM concatenated and resets the buffer to
// empty. Used by session finalization to hand the capture off for
// serialization exactly once.
func (b *FrameBuffer) TakeAll() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	pcm := b.concat()
	b.frames = nil
	b.bytes = 0
	return pcm
}

// concat joins all frames. Caller must hold b.mu.
func (b *FrameBuffer) concat() []byte {
	if b.bytes == 0 {
		return nil
	}
	out := make([]byte, 0, b.bytes)
	for _, f := range b.frames {
		out = append(out, f...)
	}
	return out
}
