package audio

import (
	"encoding/binary"
	"math"
)

// DefaultGain is the empirical scaling factor applied to the raw RMS so that
// typical speech lands around mid-scale on a 0..1 meter. The silence-gate
// default thresholds (0.05-0.1) assume this value; change both together.
const DefaultGain = 5.0

// fullScale is the normalization divisor for 16-bit samples.
const fullScale = 32768.0

// Meter computes a normalized loudness value from PCM frames. The zero value
// is not usable; construct with [NewMeter].
type Meter struct {
	gain float64
}

// NewMeter returns a level meter with the given gain multiplier. A gain of 0
// selects [DefaultGain].
func NewMeter(gain float64) *Meter {
	if gain == 0 {
		gain = DefaultGain
	}
	return &Meter{gain: gain}
}

// Level returns the frame's loudness in [0, 1]: RMS of the samples normalized
// to full scale, scaled by the gain and clamped to 1. An empty or all-zero
// frame yields 0.
func (m *Meter) Level(f Frame) float32 {
	n := f.Samples()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(f[i*bytesPerSample:]))
		v := float64(s) / fullScale
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(n))
	level := rms * m.gain
	if level > 1 {
		level = 1
	}
	return float32(level)
}
