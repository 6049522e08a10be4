package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// Mp3Decoder handles MP3 audio format decoding
type Mp3Decoder struct{}

// NewMp3Decoder creates a new MP3 decoder instance
func NewMp3Decoder() *Mp3Decoder {
	slog.Debug("creating new MP3 decoder instance")
	return &Mp3Decoder{}
}

// Decode reads MP3 audio data from reader and returns decoded PCM data.
// go-mp3 always produces 16-bit signed stereo.
func (d *Mp3Decoder) Decode(reader io.Reader) (*AudioData, error) {
	slog.Debug("starting MP3 decode operation")

	decoder, err := mp3.NewDecoder(reader)
	if err != nil {
		slog.Error("failed to create MP3 decoder", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	sampleRate := decoder.SampleRate()
	if sampleRate <= 0 {
		slog.Error("invalid MP3 sample rate", "sample_rate", sampleRate)
		return nil, ErrInvalidData
	}

	samples := make([]byte, 0, max(decoder.Length(), 0))
	buf := make([]byte, 4096)
	for {
		n, err := decoder.Read(buf)
		samples = append(samples, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Error("failed to read MP3 PCM data", "bytes_read", len(samples), "error", err)
			return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
		}
		if n == 0 {
			break
		}
	}

	if len(samples) == 0 {
		slog.Error("no audio data found in MP3 file")
		return nil, ErrInvalidData
	}

	audioData := &AudioData{
		Samples:    samples,
		Channels:   2,
		SampleRate: uint32(sampleRate),
		Format:     FormatS16,
	}

	slog.Info("MP3 decode completed successfully",
		"total_bytes", len(samples),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"duration_ms", audioData.Duration().Milliseconds())

	return audioData, nil
}

// CanDecode checks if this decoder can handle the given filename
func (d *Mp3Decoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	canDecode := strings.HasSuffix(lower, ".mp3") || strings.HasSuffix(lower, ".mpeg")

	slog.Debug("MP3 decoder file check",
		"filename", filename,
		"can_decode", canDecode)

	return canDecode
}

// FormatName returns the name of the format this decoder handles
func (d *Mp3Decoder) FormatName() string {
	return "MP3"
}
