package audio

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"riffle.click/internal/riff"
)

// sniffLen is how much of a file is handed to mimetype for magic detection
const sniffLen = 512

// DecoderRegistry manages audio format decoders and provides format detection
type DecoderRegistry struct {
	decoders []Decoder
}

// NewDecoderRegistry creates a new empty decoder registry
func NewDecoderRegistry() *DecoderRegistry {
	slog.Debug("creating new decoder registry")
	return &DecoderRegistry{}
}

// NewDefaultRegistry creates a registry with WAV, AIFF and MP3 decoders.
// wavOptions configure the WAV decoder.
func NewDefaultRegistry(wavOptions ...riff.Option) *DecoderRegistry {
	registry := NewDecoderRegistry()
	registry.Register(NewWavDecoder(wavOptions...))
	registry.Register(NewAiffDecoder())
	registry.Register(NewMp3Decoder())

	slog.Debug("default decoder registry initialized",
		"supported_formats", registry.GetSupportedFormats())

	return registry
}

// Register adds a decoder to the registry; earlier registrations win ties
func (r *DecoderRegistry) Register(decoder Decoder) {
	if decoder == nil {
		slog.Warn("attempted to register nil decoder")
		return
	}

	r.decoders = append(r.decoders, decoder)
	slog.Debug("decoder registered",
		"format", decoder.FormatName(),
		"total_decoders", len(r.decoders))
}

// GetDecoders returns all registered decoders
func (r *DecoderRegistry) GetDecoders() []Decoder {
	return r.decoders
}

// GetSupportedFormats returns a list of all supported format names
func (r *DecoderRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(r.decoders))
	for _, decoder := range r.decoders {
		formats = append(formats, decoder.FormatName())
	}
	return formats
}

// DetectFormat picks a decoder by filename extension only
func (r *DecoderRegistry) DetectFormat(filename string) Decoder {
	if filename == "" {
		return nil
	}

	for _, decoder := range r.decoders {
		if decoder.CanDecode(filename) {
			slog.Debug("format detected by extension",
				"filename", filename,
				"format", decoder.FormatName())
			return decoder
		}
	}

	slog.Debug("no decoder found for filename", "filename", filename)
	return nil
}

// DetectFormatWithContent detects format from magic bytes first, falling back to the extension
func (r *DecoderRegistry) DetectFormatWithContent(filename string, content []byte) Decoder {
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if len(head) == 0 {
		slog.Debug("empty content, using extension fallback", "filename", filename)
		return r.DetectFormat(filename)
	}

	mtype := mimetype.Detect(head)
	var formatName string
	switch {
	case mtype.Is("audio/wav"):
		formatName = "WAV"
	case mtype.Is("audio/aiff"):
		formatName = "AIFF"
	case mtype.Is("audio/mpeg"):
		formatName = "MP3"
	}

	slog.Debug("magic byte detection result",
		"filename", filename,
		"detected_mime", mtype.String(),
		"format", formatName,
		"bytes_analyzed", len(head))

	if formatName != "" {
		if decoder := r.findDecoderByFormat(formatName); decoder != nil {
			return decoder
		}
	}

	return r.DetectFormat(filename)
}

func (r *DecoderRegistry) findDecoderByFormat(formatName string) Decoder {
	for _, decoder := range r.decoders {
		if strings.EqualFold(decoder.FormatName(), formatName) {
			return decoder
		}
	}
	return nil
}

// DecodeFile decodes an audio file using the appropriate decoder
func (r *DecoderRegistry) DecodeFile(filename string, reader io.Reader) (*AudioData, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read file content for decode", "filename", filename, "error", err)
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}

	decoder := r.DetectFormatWithContent(filename, content)
	if decoder == nil {
		err := fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
		slog.Error("no suitable decoder found", "filename", filename, "error", err)
		return nil, err
	}

	audioData, err := decoder.Decode(bytes.NewReader(content))
	if err != nil {
		slog.Error("decode operation failed",
			"filename", filename,
			"decoder_format", decoder.FormatName(),
			"error", err)
		return nil, err
	}

	slog.Info("file decode completed successfully",
		"filename", filename,
		"decoder_format", decoder.FormatName(),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"data_size", len(audioData.Samples))

	return audioData, nil
}
