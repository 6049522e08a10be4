package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	goaudio "github.com/go-audio/audio"
)

// IntBuffer exposes integer PCM samples as a go-audio buffer. Float samples are not supported.
func (a *AudioData) IntBuffer() (*goaudio.IntBuffer, error) {
	width := a.Format.BytesPerSample()
	if width == 0 || a.Format == FormatF32 {
		return nil, fmt.Errorf("%w: %s samples have no integer view", ErrUnsupportedFormat, a.Format)
	}

	count := len(a.Samples) / width
	data := make([]int, count)
	for i := 0; i < count; i++ {
		s := a.Samples[i*width : (i+1)*width]
		switch a.Format {
		case FormatU8:
			data[i] = int(s[0]) - 128
		case FormatS16:
			data[i] = int(int16(binary.LittleEndian.Uint16(s)))
		case FormatS24:
			data[i] = int(goaudio.Int24LETo32(s))
		case FormatS32:
			data[i] = int(int32(binary.LittleEndian.Uint32(s)))
		}
	}

	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: int(a.Channels), SampleRate: int(a.SampleRate)},
		Data:           data,
		SourceBitDepth: a.Format.BitDepth(),
	}, nil
}

// Levels summarizes the loudness of a buffer, normalized to [0, 1]
type Levels struct {
	Peak float64
	RMS  float64
}

// PeakDBFS returns the peak level in dB relative to full scale
func (l Levels) PeakDBFS() float64 {
	if l.Peak == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(l.Peak)
}

// MeasureLevels computes peak and RMS across all channels
func MeasureLevels(buf *goaudio.IntBuffer) Levels {
	fullScale := float64(goaudio.IntMaxSignedValue(buf.SourceBitDepth))
	if fullScale == 0 || len(buf.Data) == 0 {
		return Levels{}
	}

	var peak, sumSquares float64
	for _, s := range buf.Data {
		v := math.Abs(float64(s)) / fullScale
		if v > peak {
			peak = v
		}
		sumSquares += v * v
	}

	levels := Levels{
		Peak: math.Min(peak, 1),
		RMS:  math.Sqrt(sumSquares / float64(len(buf.Data))),
	}
	slog.Debug("measured PCM levels", "peak", levels.Peak, "rms", levels.RMS, "samples", len(buf.Data))
	return levels
}

// applyVolume scales samples in place
func applyVolume(samples []byte, format SampleFormat, volume float32) {
	if volume == 1.0 {
		return
	}
	switch format {
	case FormatU8:
		for i := range samples {
			samples[i] = byte(float32(int(samples[i])-128)*volume + 128)
		}
	case FormatS16:
		for i := 0; i+1 < len(samples); i += 2 {
			s := int16(binary.LittleEndian.Uint16(samples[i:]))
			binary.LittleEndian.PutUint16(samples[i:], uint16(int16(float32(s)*volume)))
		}
	case FormatS24:
		for i := 0; i+2 < len(samples); i += 3 {
			s := goaudio.Int24LETo32(samples[i : i+3])
			copy(samples[i:i+3], goaudio.Int32toInt24LEBytes(int32(float32(s)*volume)))
		}
	case FormatS32:
		for i := 0; i+3 < len(samples); i += 4 {
			s := int32(binary.LittleEndian.Uint32(samples[i:]))
			binary.LittleEndian.PutUint32(samples[i:], uint32(int32(float64(s)*float64(volume))))
		}
	case FormatF32:
		for i := 0; i+3 < len(samples); i += 4 {
			f := math.Float32frombits(binary.LittleEndian.Uint32(samples[i:]))
			binary.LittleEndian.PutUint32(samples[i:], math.Float32bits(f*volume))
		}
	default:
		slog.Warn("volume adjustment not implemented for format", "format", format.String())
	}
}

// ToneSpec describes a generated sine tone
type ToneSpec struct {
	Frequency  float64
	SampleRate int
	Channels   int
	BitDepth   int
	Seconds    float64
	Amplitude  float64 // 0..1 of full scale
}

// GenerateTone renders a sine wave as AudioData
func GenerateTone(spec ToneSpec) (*AudioData, error) {
	format, err := sampleFormatForBits(spec.BitDepth)
	if err != nil {
		return nil, err
	}
	if spec.SampleRate <= 0 || spec.Channels <= 0 || spec.Seconds <= 0 {
		return nil, fmt.Errorf("%w: tone needs a positive sample rate, channel count and length", ErrInvalidData)
	}
	if spec.Amplitude <= 0 || spec.Amplitude > 1 {
		spec.Amplitude = 0.5
	}

	frames := int(spec.Seconds * float64(spec.SampleRate))
	peak := spec.Amplitude * float64(goaudio.IntMaxSignedValue(spec.BitDepth))
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: spec.Channels, SampleRate: spec.SampleRate},
		Data:           make([]int, frames*spec.Channels),
		SourceBitDepth: spec.BitDepth,
	}
	for i := 0; i < frames; i++ {
		v := int(peak * math.Sin(2*math.Pi*spec.Frequency*float64(i)/float64(spec.SampleRate)))
		for ch := 0; ch < spec.Channels; ch++ {
			buf.Data[i*spec.Channels+ch] = v
		}
	}

	slog.Debug("generated tone",
		"frequency", spec.Frequency,
		"frames", frames,
		"channels", spec.Channels,
		"bit_depth", spec.BitDepth)

	return &AudioData{
		Samples:    IntBufferToBytes(buf, format),
		Channels:   uint32(spec.Channels),
		SampleRate: uint32(spec.SampleRate),
		Format:     format,
	}, nil
}
