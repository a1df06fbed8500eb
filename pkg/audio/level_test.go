package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

// pcmFrame builds a little-endian frame from int16 samples.
func pcmFrame(samples ...int16) Frame {
	f := make(Frame, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(f[i*2:], uint16(s))
	}
	return f
}

// constFrame builds a frame with n copies of the same sample value.
func constFrame(n int, v int16) Frame {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = v
	}
	return pcmFrame(samples...)
}

func TestMeter_EmptyFrame(t *testing.T) {
	t.Parallel()

	m := NewMeter(0)
	if got := m.Level(nil); got != 0 {
		t.Errorf("Level(nil) = %v, want 0", got)
	}
	if got := m.Level(Frame{}); got != 0 {
		t.Errorf("Level(empty) = %v, want 0", got)
	}
}

func TestMeter_AllZeroFrame(t *testing.T) {
	t.Parallel()

	m := NewMeter(0)
	if got := m.Level(constFrame(1024, 0)); got != 0 {
		t.Errorf("Level(all-zero) = %v, want 0", got)
	}
}

func TestMeter_FullScaleClampsToOne(t *testing.T) {
	t.Parallel()

	// A full-scale square wave has RMS 1.0; with any gain >= 1 the level
	// clamps at 1.
	m := NewMeter(0)
	f := constFrame(1024, -32768)
	if got := m.Level(f); got != 1 {
		t.Errorf("Level(full-scale) = %v, want 1", got)
	}
}

func TestMeter_KnownRMS(t *testing.T) {
	t.Parallel()

	// Constant amplitude 3277 (~0.1 of full scale) gives RMS 0.1000...;
	// with the default gain of 5 the level is ~0.5.
	m := NewMeter(0)
	f := constFrame(1024, 3277)
	got := float64(m.Level(f))
	want := float64(3277) / fullScale * DefaultGain
	if math.Abs(got-want) > 1e-4 {
		t.Errorf("Level = %v, want %v", got, want)
	}
}

func TestMeter_CustomGain(t *testing.T) {
	t.Parallel()

	f := constFrame(1024, 3277)
	low := NewMeter(1).Level(f)
	high := NewMeter(5).Level(f)
	if low >= high {
		t.Errorf("gain 1 level %v not below gain 5 level %v", low, high)
	}

	ratio := float64(high) / float64(low)
	if math.Abs(ratio-5) > 1e-3 {
		t.Errorf("gain ratio = %v, want 5", ratio)
	}
}

func TestMeter_ZeroGainUsesDefault(t *testing.T) {
	t.Parallel()

	f := constFrame(256, 1000)
	if NewMeter(0).Level(f) != NewMeter(DefaultGain).Level(f) {
		t.Error("gain 0 did not select the default gain")
	}
}

func TestMeter_MonotonicInAmplitude(t *testing.T) {
	t.Parallel()

	m := NewMeter(0)
	prev := float32(-1)
	for _, amp := range []int16{0, 100, 500, 1000, 2000, 4000} {
		got := m.Level(constFrame(512, amp))
		if got <= prev {
			t.Errorf("Level(amp=%d) = %v, not above previous %v", amp, got, prev)
		}
		prev = got
	}
}
