package spectrogram

import (
	"math"
)

// Chunk is a contiguous, fixed-length slice of one channel
type Chunk struct {
	Index   int       // position among the file's chunks
	Start   int       // first sample offset in the channel
	Samples []float64 // read-only view into the channel
}

// SamplesPerChunk returns floor(sampleRate * seconds)
func SamplesPerChunk(sampleRate int, seconds float64) int {
	return int(math.Floor(float64(sampleRate) * seconds))
}

// SplitChunks cuts samples into floor(len/samplesPerChunk) consecutive,
// non-overlapping chunks. Trailing samples that do not fill a chunk are
// dropped. Each chunk's capacity ends at its last sample so appends cannot
// spill into the next chunk.
func SplitChunks(samples []float64, samplesPerChunk int) []Chunk {
	if samplesPerChunk <= 0 {
		return nil
	}

	n := len(samples) / samplesPerChunk
	chunks := make([]Chunk, n)
	for i := range n {
		start := i * samplesPerChunk
		end := start + samplesPerChunk
		chunks[i] = Chunk{
			Index:   i,
			Start:   start,
			Samples: samples[start:end:end],
		}
	}
	return chunks
}
