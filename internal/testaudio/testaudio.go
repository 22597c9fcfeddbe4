// Package testaudio writes synthetic RIFF/WAVE fixtures for tests.
package testaudio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Generator returns the integer sample for a frame and channel.
type Generator func(frame, channel int) int

// blockFrames bounds the size of each encoder write.
const blockFrames = 8192

// WriteWAV encodes frames*channels 16-bit PCM samples produced by gen into
// dir/name and returns the file path.
func WriteWAV(tb testing.TB, dir, name string, sampleRate, channels, frames int, gen Generator) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}

	for start := 0; start < frames; start += blockFrames {
		end := min(start+blockFrames, frames)
		buf.Data = buf.Data[:0]
		for frame := start; frame < end; frame++ {
			for ch := range channels {
				buf.Data = append(buf.Data, gen(frame, ch))
			}
		}
		if err := enc.Write(buf); err != nil {
			tb.Fatalf("write %s: %v", path, err)
		}
	}

	if err := enc.Close(); err != nil {
		tb.Fatalf("close encoder %s: %v", path, err)
	}
	return path
}

// Sine produces a sinusoid of the given frequency and peak amplitude on
// every channel.
func Sine(freq float64, sampleRate int, amplitude float64) Generator {
	return func(frame, _ int) int {
		return int(math.Round(amplitude * math.Sin(2*math.Pi*freq*float64(frame)/float64(sampleRate))))
	}
}

// ChannelIndex fills every sample with its channel number, so tests can
// check which channel a decoder picked.
func ChannelIndex() Generator {
	return func(_, channel int) int {
		return channel * 100
	}
}

// Noise produces deterministic white noise in [-amplitude, amplitude],
// hashing (seed, frame, channel) with the murmur3 finalizer.
func Noise(seed uint32, amplitude int) Generator {
	return func(frame, channel int) int {
		h := seed ^ uint32(frame) ^ uint32(channel)*0x9e3779b9
		h ^= h >> 16
		h *= 0x85ebca6b
		h ^= h >> 13
		h *= 0xc2b2ae35
		h ^= h >> 16
		return int(h%uint32(2*amplitude+1)) - amplitude
	}
}

// WriteText writes a non-audio file, for malformed-input tests.
func WriteText(tb testing.TB, dir, name, body string) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}
