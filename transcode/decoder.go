package transcode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/RyanBlaney/fkw-sonar/logging"
)

// WAVE format tags understood by the decoder
const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

// ErrInvalidFormat is returned for unreadable files and for anything that is
// not a supported RIFF/WAVE stream.
var ErrInvalidFormat = errors.New("invalid input file type. Supported file type(s): .wav")

// ChannelError reports a channel index the file does not have.
type ChannelError struct {
	Requested int
	Available int
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("Channel %d not available. File has %d channels", e.Requested, e.Available)
}

// AudioData represents one decoded channel of a WAV file.
//
// PCM keeps the source amplitude units: integer files are not rescaled and
// float files are read as-is.
type AudioData struct {
	PCM        []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // channels in the source file
	Channel    int           `json:"channel"`  // channel PCM was taken from
	BitDepth   int           `json:"bit_depth"`
	Float      bool          `json:"float"`
	Duration   time.Duration `json:"duration"`
	Source     string        `json:"source"`
}

// Seconds returns the exact duration in seconds
func (a *AudioData) Seconds() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.PCM)) / float64(a.SampleRate)
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	BlockFrames int `json:"block_frames"` // frames read per PCM call
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		BlockFrames: 16384,
	}
}

// Decoder reads single channels out of RIFF/WAVE files
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil || config.BlockFrames <= 0 {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes channel from a WAV file.
//
// Single-channel files ignore the channel argument. Multi-channel files
// require 0 <= channel < channels and return a *ChannelError otherwise.
// A data chunk cut short by a truncated file yields the samples read so far.
func (d *Decoder) DecodeFile(filename string, channel int) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filepath.Base(filename),
	})

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()

	return d.decode(f, filename, channel, logger)
}

// DecodeReader decodes channel from an in-memory or on-disk WAV stream
func (d *Decoder) DecodeReader(r io.ReadSeeker, channel int) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeReader",
	})
	return d.decode(r, "", channel, logger)
}

func (d *Decoder) decode(r io.ReadSeeker, source string, channel int, logger logging.Logger) (*AudioData, error) {
	// go-audio/wav does not expose the WAVE_FORMAT_EXTENSIBLE subformat
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	subFormat, subErr := readSubFormat(r)
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidFormat)
	}

	format := dec.WavAudioFormat
	if format == formatExtensible {
		if subErr != nil {
			return nil, fmt.Errorf("%w: extensible header: %v", ErrInvalidFormat, subErr)
		}
		format = subFormat
	}

	isFloat := false
	switch format {
	case formatPCM:
	case formatIEEEFloat:
		if dec.BitDepth != 32 {
			return nil, fmt.Errorf("%w: %d-bit float samples", ErrInvalidFormat, dec.BitDepth)
		}
		isFloat = true
	default:
		return nil, fmt.Errorf("%w: unsupported format tag 0x%04X", ErrInvalidFormat, format)
	}

	channels := int(dec.NumChans)
	sampleRate := int(dec.SampleRate)
	if channels < 1 || sampleRate < 1 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidFormat, channels, sampleRate)
	}

	if channels == 1 {
		channel = 0
	} else if channel < 0 || channel >= channels {
		return nil, &ChannelError{Requested: channel, Available: channels}
	}

	logger.Debug("WAV header parsed", logging.Fields{
		"sample_rate": sampleRate,
		"channels":    channels,
		"bit_depth":   dec.BitDepth,
		"float":       isFloat,
	})

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	bytesPerFrame := int64(channels) * int64(dec.BitDepth/8)
	estimate := 0
	if bytesPerFrame > 0 {
		estimate = int(dec.PCMLen() / bytesPerFrame)
	}

	pcm := make([]float64, 0, estimate)
	buf := &audio.IntBuffer{
		Format:         dec.Format(),
		Data:           make([]int, d.config.BlockFrames*channels),
		SourceBitDepth: int(dec.BitDepth),
	}

	for {
		n, err := dec.PCMBuffer(buf)
		for frame := range n / channels {
			v := buf.Data[frame*channels+channel]
			if isFloat {
				pcm = append(pcm, float64(math.Float32frombits(uint32(v))))
			} else {
				pcm = append(pcm, float64(v))
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				logger.Warn("WAV data ended early", logging.Fields{"frames": len(pcm)})
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if n == 0 {
			break
		}
	}

	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: no audio frames", ErrInvalidFormat)
	}

	data := &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Channel:    channel,
		BitDepth:   int(dec.BitDepth),
		Float:      isFloat,
		Source:     source,
	}
	data.Duration = time.Duration(data.Seconds() * float64(time.Second))

	logger.Debug("Decoded channel", logging.Fields{
		"channel":  channel,
		"frames":   len(pcm),
		"duration": data.Seconds(),
	})

	return data, nil
}

// readSubFormat returns the format code of a WAVE_FORMAT_EXTENSIBLE fmt
// chunk: the first two bytes of the SubFormat GUID at offset 24.
func readSubFormat(r io.Reader) (uint16, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, err
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, errors.New("not a RIFF/WAVE stream")
	}

	var header [8]byte
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return 0, fmt.Errorf("fmt chunk not found: %w", err)
		}
		size := int64(binary.LittleEndian.Uint32(header[4:8]))

		if string(header[0:4]) != "fmt " {
			// chunks are word aligned
			if _, err := io.CopyN(io.Discard, r, size+size&1); err != nil {
				return 0, fmt.Errorf("fmt chunk not found: %w", err)
			}
			continue
		}

		if size < 26 {
			return 0, fmt.Errorf("fmt chunk of %d bytes has no subformat", size)
		}
		body := make([]byte, 26)
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint16(body[24:26]), nil
	}
}
