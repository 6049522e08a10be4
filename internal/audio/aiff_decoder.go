package audio

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
)

// AiffDecoder handles AIFF audio format decoding via go-audio/aiff
type AiffDecoder struct{}

// NewAiffDecoder creates a new AIFF decoder instance
func NewAiffDecoder() *AiffDecoder {
	slog.Debug("creating new AIFF decoder instance")
	return &AiffDecoder{}
}

// FormatName returns the name of the format this decoder handles
func (d *AiffDecoder) FormatName() string {
	return "AIFF"
}

// CanDecode checks if this decoder can handle the given filename
func (d *AiffDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	canDecode := strings.HasSuffix(lower, ".aiff") || strings.HasSuffix(lower, ".aif")

	slog.Debug("AIFF decoder file check",
		"filename", filename,
		"can_decode", canDecode)

	return canDecode
}

// Decode reads AIFF audio data from reader and returns little-endian PCM
func (d *AiffDecoder) Decode(reader io.Reader) (*AudioData, error) {
	slog.Debug("starting AIFF decode operation")

	// go-audio/aiff needs a ReadSeeker
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read AIFF data", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	if len(data) == 0 {
		slog.Error("empty AIFF data")
		return nil, ErrInvalidData
	}

	decoder := aiff.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		slog.Error("invalid AIFF file format")
		return nil, ErrInvalidData
	}

	bitDepth := int(decoder.SampleBitDepth())
	format, err := sampleFormatForBits(bitDepth)
	if err != nil {
		slog.Error("unsupported AIFF bit depth", "bits", bitDepth)
		return nil, err
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		slog.Error("failed to read AIFF samples", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	if pcm == nil || len(pcm.Data) == 0 {
		slog.Error("no audio data found in AIFF file")
		return nil, ErrInvalidData
	}

	audioData := &AudioData{
		Samples:    IntBufferToBytes(pcm, format),
		Channels:   uint32(decoder.NumChans),
		SampleRate: uint32(decoder.SampleRate),
		Format:     format,
	}
	if audioData.Channels == 0 || audioData.SampleRate == 0 {
		slog.Error("invalid AIFF format parameters",
			"channels", audioData.Channels,
			"sample_rate", audioData.SampleRate)
		return nil, ErrInvalidData
	}

	slog.Info("AIFF decode completed successfully",
		"total_bytes", len(audioData.Samples),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"format", format.String(),
		"duration_ms", audioData.Duration().Milliseconds())

	return audioData, nil
}

func sampleFormatForBits(bits int) (SampleFormat, error) {
	switch bits {
	case 8:
		// AIFF 8-bit is signed; IntBufferToBytes re-biases it to unsigned
		return FormatU8, nil
	case 16:
		return FormatS16, nil
	case 24:
		return FormatS24, nil
	case 32:
		return FormatS32, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, bits)
	}
}

// IntBufferToBytes serializes signed integer samples as little-endian PCM in format
func IntBufferToBytes(buf *goaudio.IntBuffer, format SampleFormat) []byte {
	out := make([]byte, 0, len(buf.Data)*format.BytesPerSample())
	for _, s := range buf.Data {
		switch format {
		case FormatU8:
			out = append(out, byte(s+128))
		case FormatS16:
			out = append(out, byte(s), byte(s>>8))
		case FormatS24:
			out = append(out, goaudio.Int32toInt24LEBytes(int32(s))...)
		case FormatS32:
			out = append(out, byte(s), byte(s>>8), byte(s>>16), byte(s>>24))
		}
	}
	return out
}
