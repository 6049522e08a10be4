package riff

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

// FormatFieldsSize is the width of the fixed PCM fmt fields.
const FormatFieldsSize = 16

// extensibleSize is the fmt payload width that carries a SubFormat GUID:
// fixed fields, cbSize, valid bits, channel mask, GUID.
const extensibleSize = FormatFieldsSize + 2 + 22

// Audio format tags seen in the fmt chunk.
const (
	FormatPCM        uint16 = 0x0001
	FormatIEEEFloat  uint16 = 0x0003
	FormatALaw       uint16 = 0x0006
	FormatMuLaw      uint16 = 0x0007
	FormatExtensible uint16 = 0xFFFE
)

// FormatRecord holds the fixed fields of the fmt chunk.
type FormatRecord struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	SubFormat     uint16 // leading GUID bytes of an extensible fmt, zero otherwise
}

// EffectiveFormat resolves an extensible tag to its SubFormat when one was read.
func (f FormatRecord) EffectiveFormat() uint16 {
	if f.AudioFormat == FormatExtensible && f.SubFormat != 0 {
		return f.SubFormat
	}
	return f.AudioFormat
}

// FormatName returns a human readable name for the format tag.
func (f FormatRecord) FormatName() string {
	switch f.AudioFormat {
	case FormatPCM:
		return "PCM"
	case FormatIEEEFloat:
		return "IEEE float"
	case FormatALaw:
		return "A-law"
	case FormatMuLaw:
		return "mu-law"
	case FormatExtensible:
		switch f.SubFormat {
		case FormatPCM:
			return "extensible PCM"
		case FormatIEEEFloat:
			return "extensible IEEE float"
		}
		return "extensible"
	default:
		return "unknown"
	}
}

func (f FormatRecord) marshal(dst []byte) {
	binary.LittleEndian.PutUint16(dst[0:2], f.AudioFormat)
	binary.LittleEndian.PutUint16(dst[2:4], f.NumChannels)
	binary.LittleEndian.PutUint32(dst[4:8], f.SampleRate)
	binary.LittleEndian.PutUint32(dst[8:12], f.ByteRate)
	binary.LittleEndian.PutUint16(dst[12:14], f.BlockAlign)
	binary.LittleEndian.PutUint16(dst[14:16], f.BitsPerSample)
}

// decodeFormat maps a fmt chunk payload onto a FormatRecord. The cursor must sit right
// after a header tagged FmtID; on return it sits right after the payload, extension
// bytes included.
func decodeFormat(c *Cursor, hdr ChunkHeader) (FormatRecord, error) {
	start := c.Offset()
	if hdr.Size < FormatFieldsSize {
		err := newError(ErrMalformedFormatChunk, hdr.ID, start)
		err.Err = fmt.Errorf("payload of %d bytes is shorter than the %d-byte minimum", hdr.Size, FormatFieldsSize)
		return FormatRecord{}, err
	}

	fields, err := c.peek(hdr.ID, FormatFieldsSize)
	if err != nil {
		return FormatRecord{}, err
	}
	// the whole declared payload must be present, not just the fixed part
	if int64(hdr.Size) > c.Remaining() {
		return FormatRecord{}, lengthError(ErrTruncatedChunk, hdr.ID, start, int64(hdr.Size), c.Remaining())
	}

	rec := FormatRecord{
		AudioFormat:   binary.LittleEndian.Uint16(fields[0:2]),
		NumChannels:   binary.LittleEndian.Uint16(fields[2:4]),
		SampleRate:    binary.LittleEndian.Uint32(fields[4:8]),
		ByteRate:      binary.LittleEndian.Uint32(fields[8:12]),
		BlockAlign:    binary.LittleEndian.Uint16(fields[12:14]),
		BitsPerSample: binary.LittleEndian.Uint16(fields[14:16]),
	}
	if rec.AudioFormat == FormatExtensible && hdr.Size >= extensibleSize {
		ext, err := c.peek(hdr.ID, extensibleSize)
		if err != nil {
			return FormatRecord{}, err
		}
		if cbSize := binary.LittleEndian.Uint16(ext[16:18]); cbSize >= 22 {
			rec.SubFormat = binary.LittleEndian.Uint16(ext[24:26])
		}
	}
	if err := c.Skip(hdr.ID, int64(hdr.Size)); err != nil {
		return FormatRecord{}, err
	}

	if extra := hdr.Size - FormatFieldsSize; extra > 0 {
		slog.Debug("skipped fmt extension bytes", "extra_bytes", extra)
	}
	slog.Debug("fmt chunk decoded",
		"offset", start,
		"audio_format", rec.AudioFormat,
		"channels", rec.NumChannels,
		"sample_rate", rec.SampleRate,
		"byte_rate", rec.ByteRate,
		"block_align", rec.BlockAlign,
		"bits_per_sample", rec.BitsPerSample,
		"sub_format", rec.SubFormat)

	return rec, nil
}
