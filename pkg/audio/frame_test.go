package audio

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func TestFrame_Samples(t *testing.T) {
	t.Parallel()

	if got := (Frame{}).Samples(); got != 0 {
		t.Errorf("empty frame samples = %d, want 0", got)
	}
	if got := (make(Frame, 2048)).Samples(); got != 1024 {
		t.Errorf("2048-byte frame samples = %d, want 1024", got)
	}
}

func TestFrameBuffer_AppendAndConcat(t *testing.T) {
	t.Parallel()

	b := NewFrameBuffer()
	b.Append(Frame{1, 2})
	b.Append(Frame{3, 4})
	b.Append(Frame{5, 6})

	if b.Len() != 3 {
		t.Errorf("Len = %d, want 3", b.Len())
	}
	if b.Size() != 6 {
		t.Errorf("Size = %d, want 6", b.Size())
	}

	want := []byte{1, 2, 3, 4, 5, 6}
	if got := b.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("Bytes = %v, want %v", got, want)
	}

	// Bytes is a snapshot; the buffer keeps its contents.
	if b.Len() != 3 || b.Size() != 6 {
		t.Error("Bytes drained the buffer")
	}
}

func TestFrameBuffer_TakeAllResets(t *testing.T) {
	t.Parallel()

	b := NewFrameBuffer()
	b.Append(Frame{1, 2})
	b.Append(Frame{3, 4})

	got := b.TakeAll()
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("TakeAll = %v", got)
	}
	if b.Len() != 0 || b.Size() != 0 {
		t.Error("buffer not reset after TakeAll")
	}
	if b.TakeAll() != nil {
		t.Error("second TakeAll not nil")
	}
}

func TestFrameBuffer_EmptyIsNil(t *testing.T) {
	t.Parallel()

	b := NewFrameBuffer()
	if b.Bytes() != nil {
		t.Error("Bytes on empty buffer not nil")
	}
	if b.Duration(Params{SampleRate: 16000, Channels: 1}) != 0 {
		t.Error("Duration on empty buffer not zero")
	}
}

func TestFrameBuffer_Duration(t *testing.T) {
	t.Parallel()

	p := Params{SampleRate: 16000, Channels: 1, ChunkSize: 1024}
	b := NewFrameBuffer()

	// One second of 16 kHz mono 16-bit PCM is 32000 bytes.
	b.Append(make(Frame, 32000))
	if got := b.Duration(p); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}

	b.Append(make(Frame, 16000))
	if got := b.Duration(p); got != 1500*time.Millisecond {
		t.Errorf("Duration = %v, want 1.5s", got)
	}
}

func TestFrameBuffer_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	b := NewFrameBuffer()
	const goroutines = 8
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				b.Append(make(Frame, 4))
				_ = b.Size()
			}
		}()
	}
	wg.Wait()

	if got := b.Len(); got != goroutines*perGoroutine {
		t.Errorf("Len = %d, want %d", got, goroutines*perGoroutine)
	}
	if got := b.Size(); got != goroutines*perGoroutine*4 {
		t.Errorf("Size = %d, want %d", got, goroutines*perGoroutine*4)
	}
}
