package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// bitsPerSample is fixed at 16 for all audio handled by this package.
const bitsPerSample = 16

// WriteWAV serializes raw little-endian PCM to a standard RIFF/WAV container
// at path. The header fields match p exactly. An existing file is truncated.
func WriteWAV(path string, pcm []byte, p Params) error {
	p = p.withDefaults()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create wav %q: %w", path, err)
	}

	enc := wav.NewEncoder(f, p.SampleRate, bitsPerSample, p.Channels, 1)

	n := len(pcm) / bytesPerSample
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: p.Channels,
			SampleRate:  p.SampleRate,
		},
		Data:           make([]int, n),
		SourceBitDepth: bitsPerSample,
	}
	for i := 0; i < n; i++ {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:])))
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("audio: write wav %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("audio: finalize wav %q: %w", path, err)
	}
	return f.Close()
}

// WAVInfo summarizes a WAV file's header.
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int

	// DataBytes is the length of the PCM data chunk.
	DataBytes int64

	// Duration is the playback duration implied by the header.
	Duration time.Duration
}

// ReadWAVInfo reads the header of the WAV file at path. Used to populate
// artifact metadata and to verify round-trips in tests.
func ReadWAVInfo(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, fmt.Errorf("audio: open wav %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.WasPCMAccessed() && dec.Err() != nil {
		return WAVInfo{}, fmt.Errorf("audio: read wav header %q: %w", path, dec.Err())
	}
	if !dec.IsValidFile() {
		return WAVInfo{}, fmt.Errorf("audio: %q is not a valid wav file", path)
	}

	dur, err := dec.Duration()
	if err != nil {
		return WAVInfo{}, fmt.Errorf("audio: wav duration %q: %w", path, err)
	}

	return WAVInfo{
		SampleRate:    int(dec.SampleRate),
		Channels:      int(dec.NumChans),
		BitsPerSample: int(dec.BitDepth),
		DataBytes:     dec.PCMLen(),
		Duration:      dur,
	}, nil
}
