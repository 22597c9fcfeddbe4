package transcode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/fkw-sonar/internal/testaudio"
	"github.com/RyanBlaney/fkw-sonar/logging"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	os.Exit(m.Run())
}

func TestDecodeFileSelectsChannel(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteWAV(t, dir, "six.wav", 8000, 6, 4000, testaudio.ChannelIndex())

	data, err := NewDecoder(nil).DecodeFile(path, 5)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}

	if data.Channels != 6 || data.Channel != 5 {
		t.Errorf("channels/channel = %d/%d, want 6/5", data.Channels, data.Channel)
	}
	if data.SampleRate != 8000 {
		t.Errorf("sample rate = %d, want 8000", data.SampleRate)
	}
	if len(data.PCM) != 4000 {
		t.Fatalf("frames = %d, want 4000", len(data.PCM))
	}
	for i, v := range data.PCM {
		if v != 500 {
			t.Fatalf("PCM[%d] = %v, want 500 (channel 5)", i, v)
		}
	}
	if got := data.Seconds(); got != 0.5 {
		t.Errorf("Seconds = %v, want 0.5", got)
	}
}

func TestDecodeFileMonoIgnoresChannel(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteWAV(t, dir, "mono.wav", 8000, 1, 100, testaudio.Sine(1000, 8000, 1000))

	data, err := NewDecoder(nil).DecodeFile(path, 5)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if data.Channel != 0 || data.Channels != 1 {
		t.Errorf("mono decode picked channel %d of %d", data.Channel, data.Channels)
	}
}

func TestDecodeFileChannelOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteWAV(t, dir, "stereo.wav", 8000, 2, 100, testaudio.ChannelIndex())

	for _, channel := range []int{2, 3, -1} {
		_, err := NewDecoder(nil).DecodeFile(path, channel)
		var chErr *ChannelError
		if !errors.As(err, &chErr) {
			t.Fatalf("channel %d: error = %v, want *ChannelError", channel, err)
		}
		if chErr.Available != 2 {
			t.Errorf("Available = %d, want 2", chErr.Available)
		}
	}

	if _, err := NewDecoder(nil).DecodeFile(path, 1); err != nil {
		t.Errorf("last channel should decode: %v", err)
	}
}

func TestDecodeFileInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"text renamed to wav", testaudio.WriteText(t, dir, "notes.wav", "this is not audio\n")},
		{"empty file", testaudio.WriteText(t, dir, "empty.wav", "")},
		{"missing file", dir + "/missing.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(nil).DecodeFile(tt.path, 0)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("error = %v, want ErrInvalidFormat", err)
			}
		})
	}
}

func TestDecodeReader(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteWAV(t, dir, "tone.wav", 16000, 2, 1600, testaudio.ChannelIndex())

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	data, err := NewDecoder(&DecoderConfig{BlockFrames: 7}).DecodeReader(bytes.NewReader(raw), 1)
	if err != nil {
		t.Fatalf("DecodeReader: %v", err)
	}
	if len(data.PCM) != 1600 {
		t.Errorf("frames = %d, want 1600", len(data.PCM))
	}
	if data.PCM[0] != 100 || data.PCM[1599] != 100 {
		t.Errorf("unexpected samples %v..%v", data.PCM[0], data.PCM[1599])
	}
}

// rawWAV assembles a RIFF/WAVE file byte by byte, for layouts the go-audio
// encoder does not write.
type rawWAV struct {
	format    uint16
	subFormat uint16 // WAVE_FORMAT_EXTENSIBLE only
	channels  int
	rate      int
	bits      int
	data      []byte
	dataSize  int // declared data chunk size, 0 means len(data)
}

var subFormatGUIDTail = []byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}

func (w rawWAV) bytes() []byte {
	le := binary.LittleEndian
	blockAlign := w.channels * w.bits / 8

	fmtChunk := le.AppendUint16(nil, w.format)
	fmtChunk = le.AppendUint16(fmtChunk, uint16(w.channels))
	fmtChunk = le.AppendUint32(fmtChunk, uint32(w.rate))
	fmtChunk = le.AppendUint32(fmtChunk, uint32(w.rate*blockAlign))
	fmtChunk = le.AppendUint16(fmtChunk, uint16(blockAlign))
	fmtChunk = le.AppendUint16(fmtChunk, uint16(w.bits))
	if w.format == formatExtensible {
		fmtChunk = le.AppendUint16(fmtChunk, 22)
		fmtChunk = le.AppendUint16(fmtChunk, uint16(w.bits))
		fmtChunk = le.AppendUint32(fmtChunk, 1<<w.channels-1)
		fmtChunk = le.AppendUint16(fmtChunk, w.subFormat)
		fmtChunk = append(fmtChunk, subFormatGUIDTail...)
	}

	dataSize := w.dataSize
	if dataSize == 0 {
		dataSize = len(w.data)
	}

	out := []byte("RIFF")
	out = le.AppendUint32(out, uint32(4+8+len(fmtChunk)+8+dataSize))
	out = append(out, "WAVEfmt "...)
	out = le.AppendUint32(out, uint32(len(fmtChunk)))
	out = append(out, fmtChunk...)
	out = append(out, "data"...)
	out = le.AppendUint32(out, uint32(dataSize))
	return append(out, w.data...)
}

// interleave encodes frames*channels samples with enc
func interleave(frames, channels int, enc func(channel int) []byte) []byte {
	var out []byte
	for range frames {
		for ch := range channels {
			out = append(out, enc(ch)...)
		}
	}
	return out
}

func float32LE(v float32) []byte {
	return binary.LittleEndian.AppendUint32(nil, math.Float32bits(v))
}

func int16LE(v int16) []byte {
	return binary.LittleEndian.AppendUint16(nil, uint16(v))
}

func int24LE(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16)}
}

func TestDecodeSampleLayouts(t *testing.T) {
	tests := []struct {
		name      string
		wav       rawWAV
		channel   int
		wantValue float64
		wantFloat bool
		frames    int
	}{
		{
			name: "32-bit float",
			wav: rawWAV{format: formatIEEEFloat, channels: 2, rate: 8000, bits: 32,
				data: interleave(100, 2, func(ch int) []byte { return float32LE([]float32{0.5, -0.25}[ch]) })},
			channel: 1, wantValue: -0.25, wantFloat: true, frames: 100,
		},
		{
			name: "extensible float",
			wav: rawWAV{format: formatExtensible, subFormat: formatIEEEFloat, channels: 6, rate: 8000, bits: 32,
				data: interleave(100, 6, func(ch int) []byte { return float32LE(float32(ch) * 0.125) })},
			channel: 5, wantValue: 0.625, wantFloat: true, frames: 100,
		},
		{
			name: "extensible 16-bit PCM",
			wav: rawWAV{format: formatExtensible, subFormat: formatPCM, channels: 2, rate: 8000, bits: 16,
				data: interleave(100, 2, func(ch int) []byte { return int16LE([]int16{1000, -2000}[ch]) })},
			channel: 1, wantValue: -2000, frames: 100,
		},
		{
			name: "24-bit PCM",
			wav: rawWAV{format: formatPCM, channels: 3, rate: 8000, bits: 24,
				data: interleave(100, 3, func(ch int) []byte { return int24LE(int32(ch+1) * -1000) })},
			channel: 2, wantValue: -3000, frames: 100,
		},
		{
			name: "8-bit PCM is unsigned",
			wav: rawWAV{format: formatPCM, channels: 1, rate: 8000, bits: 8,
				data: interleave(100, 1, func(int) []byte { return []byte{200} })},
			channel: 0, wantValue: 200, frames: 100,
		},
		{
			name: "truncated data chunk",
			wav: rawWAV{format: formatPCM, channels: 2, rate: 8000, bits: 16, dataSize: 4000,
				data: interleave(100, 2, func(ch int) []byte { return int16LE(int16(ch * 7)) })},
			channel: 1, wantValue: 7, frames: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "raw.wav")
			if err := os.WriteFile(path, tt.wav.bytes(), 0o644); err != nil {
				t.Fatal(err)
			}

			data, err := NewDecoder(nil).DecodeFile(path, tt.channel)
			if err != nil {
				t.Fatalf("DecodeFile: %v", err)
			}
			if len(data.PCM) != tt.frames {
				t.Fatalf("frames = %d, want %d", len(data.PCM), tt.frames)
			}
			if data.Float != tt.wantFloat || data.BitDepth != tt.wav.bits {
				t.Errorf("float/bits = %v/%d, want %v/%d", data.Float, data.BitDepth, tt.wantFloat, tt.wav.bits)
			}
			for i, v := range data.PCM {
				if v != tt.wantValue {
					t.Fatalf("PCM[%d] = %v, want %v", i, v, tt.wantValue)
				}
			}
		})
	}
}

func TestDecodeRejectsUnsupportedLayouts(t *testing.T) {
	tests := []struct {
		name string
		wav  rawWAV
	}{
		{"extensible ADPCM", rawWAV{format: formatExtensible, subFormat: 2, channels: 2, rate: 8000, bits: 16, data: make([]byte, 400)}},
		{"compressed tag", rawWAV{format: 0x0055, channels: 1, rate: 8000, bits: 16, data: make([]byte, 400)}},
		{"64-bit float", rawWAV{format: formatIEEEFloat, channels: 1, rate: 8000, bits: 64, data: make([]byte, 800)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(nil).DecodeReader(bytes.NewReader(tt.wav.bytes()), 0)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("error = %v, want ErrInvalidFormat", err)
			}
		})
	}
}
