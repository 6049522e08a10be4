package audio

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"riffle.click/internal/riff"
)

// WavDecoder turns RIFF/WAVE files into AudioData using the riff package
type WavDecoder struct {
	options []riff.Option
}

// NewWavDecoder creates a new WAV decoder instance; options are passed to riff.Decode
func NewWavDecoder(options ...riff.Option) *WavDecoder {
	slog.Debug("creating new WAV decoder instance", "options", len(options))
	return &WavDecoder{options: options}
}

// Decode reads WAV audio data from reader and returns decoded PCM data
func (d *WavDecoder) Decode(reader io.Reader) (*AudioData, error) {
	slog.Debug("starting WAV decode operation")

	doc, err := riff.DecodeReader(reader, d.options...)
	if err != nil {
		slog.Error("failed to decode WAV document", "kind", riff.KindName(err), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	return DocumentToAudioData(doc)
}

// DocumentToAudioData interprets a decoded document's payload as PCM samples
func DocumentToAudioData(doc *riff.Document) (*AudioData, error) {
	format, err := SampleFormatFor(doc.Format)
	if err != nil {
		slog.Error("unsupported WAV sample layout",
			"audio_format", doc.Format.AudioFormat,
			"bits_per_sample", doc.Format.BitsPerSample,
			"error", err)
		return nil, err
	}

	if doc.Format.NumChannels == 0 || doc.Format.SampleRate == 0 {
		slog.Error("invalid WAV format parameters",
			"channels", doc.Format.NumChannels,
			"sample_rate", doc.Format.SampleRate)
		return nil, ErrInvalidData
	}

	audioData := &AudioData{
		Samples:    doc.Data.Bytes,
		Channels:   uint32(doc.Format.NumChannels),
		SampleRate: doc.Format.SampleRate,
		Format:     format,
	}

	if rem := len(audioData.Samples) % (int(audioData.Channels) * format.BytesPerSample()); rem != 0 {
		slog.Warn("WAV data ends with a partial frame", "trailing_bytes", rem)
	}

	slog.Info("WAV decode completed successfully",
		"total_bytes", len(audioData.Samples),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"format", format.String(),
		"duration_ms", audioData.Duration().Milliseconds())

	return audioData, nil
}

// SampleFormatFor maps a fmt chunk onto a playable sample layout
func SampleFormatFor(f riff.FormatRecord) (SampleFormat, error) {
	tag := f.EffectiveFormat()
	if tag == riff.FormatExtensible {
		// no SubFormat GUID was read; 32 bits could be either integer or float
		if f.BitsPerSample == 32 {
			return FormatUnknown, fmt.Errorf("%w: extensible 32-bit without a sub-format", ErrUnsupportedFormat)
		}
		tag = riff.FormatPCM
	}

	switch tag {
	case riff.FormatPCM:
		switch f.BitsPerSample {
		case 8:
			return FormatU8, nil
		case 16:
			return FormatS16, nil
		case 24:
			return FormatS24, nil
		case 32:
			return FormatS32, nil
		}
	case riff.FormatIEEEFloat:
		if f.BitsPerSample == 32 {
			return FormatF32, nil
		}
	}

	return FormatUnknown, fmt.Errorf("%w: %s with %d bits per sample",
		ErrUnsupportedFormat, f.FormatName(), f.BitsPerSample)
}

// CanDecode checks if this decoder can handle the given filename
func (d *WavDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	canDecode := strings.HasSuffix(lower, ".wav") || strings.HasSuffix(lower, ".wave")

	slog.Debug("WAV decoder file check",
		"filename", filename,
		"can_decode", canDecode)

	return canDecode
}

// FormatName returns the name of the format this decoder handles
func (d *WavDecoder) FormatName() string {
	return "WAV"
}
