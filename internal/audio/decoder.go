package audio

import (
	"errors"
	"fmt"
	"io"
	"time"

	"riffle.click/internal/riff"
)

// Common decoder errors
var (
	ErrInvalidData       = errors.New("invalid audio data")
	ErrReadFailure       = errors.New("failed to read audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// SampleFormat describes how one sample of one channel is laid out in AudioData.Samples
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatU8                   // unsigned 8-bit
	FormatS16                  // signed 16-bit little endian
	FormatS24                  // signed 24-bit little endian, packed
	FormatS32                  // signed 32-bit little endian
	FormatF32                  // IEEE float 32-bit little endian
)

// BytesPerSample returns the width of one sample, 0 for FormatUnknown
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16:
		return 2
	case FormatS24:
		return 3
	case FormatS32, FormatF32:
		return 4
	default:
		return 0
	}
}

// BitDepth returns the bits per sample written to a WAV fmt chunk
func (f SampleFormat) BitDepth() int {
	return f.BytesPerSample() * 8
}

func (f SampleFormat) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16"
	case FormatS24:
		return "s24"
	case FormatS32:
		return "s32"
	case FormatF32:
		return "f32"
	default:
		return "unknown"
	}
}

// AudioData represents decoded audio ready for playback
type AudioData struct {
	Samples    []byte       // Raw interleaved PCM data
	Channels   uint32       // Number of audio channels
	SampleRate uint32       // Sample rate in Hz
	Format     SampleFormat // Sample layout
}

// Frames returns the number of complete frames in Samples
func (a *AudioData) Frames() int {
	frameSize := int(a.Channels) * a.Format.BytesPerSample()
	if frameSize == 0 {
		return 0
	}
	return len(a.Samples) / frameSize
}

// Duration returns the playback length of the samples
func (a *AudioData) Duration() time.Duration {
	if a.SampleRate == 0 {
		return 0
	}
	return time.Duration(a.Frames()) * time.Second / time.Duration(a.SampleRate)
}

// FormatRecord describes the samples as a WAV fmt chunk
func (a *AudioData) FormatRecord() riff.FormatRecord {
	bytesPerSample := a.Format.BytesPerSample()
	tag := riff.FormatPCM
	if a.Format == FormatF32 {
		tag = riff.FormatIEEEFloat
	}
	return riff.FormatRecord{
		AudioFormat:   tag,
		NumChannels:   uint16(a.Channels),
		SampleRate:    a.SampleRate,
		ByteRate:      a.SampleRate * a.Channels * uint32(bytesPerSample),
		BlockAlign:    uint16(int(a.Channels) * bytesPerSample),
		BitsPerSample: uint16(a.Format.BitDepth()),
	}
}

// ToWAV wraps the samples in a RIFF/WAVE buffer
func (a *AudioData) ToWAV() ([]byte, error) {
	if a == nil || a.Format == FormatUnknown || a.Channels == 0 || a.SampleRate == 0 {
		return nil, fmt.Errorf("%w: cannot describe samples as WAV", ErrInvalidData)
	}
	return riff.Encode(riff.Build(a.FormatRecord(), a.Samples))
}

// Decoder interface for audio format decoding
type Decoder interface {
	// Decode reads audio data from reader and returns decoded PCM data
	Decode(reader io.Reader) (*AudioData, error)

	// CanDecode checks if this decoder can handle the given filename
	CanDecode(filename string) bool

	// FormatName returns the name of the format this decoder handles
	FormatName() string
}
