package riff

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
)

// containerSize is the RIFF size field for a document whose data payload is dataLen
// bytes: form tag, fmt chunk and data chunk.
func containerSize(dataLen int) uint32 {
	return uint32(4 + HeaderSize + FormatFieldsSize + HeaderSize + dataLen)
}

// Encode serializes doc as container header, fmt chunk, data chunk. Every length
// field is recomputed from what is written; cached sizes on doc are ignored.
func Encode(doc *Document) ([]byte, error) {
	if doc == nil || doc.Data.Bytes == nil {
		return nil, &DecodeError{Kind: ErrIncompleteDocument, Declared: -1, Available: -1}
	}
	if uint64(len(doc.Data.Bytes)) > uint64(^uint32(0))-uint64(containerSize(0)) {
		return nil, fmt.Errorf("data payload of %d bytes exceeds the RIFF size limit", len(doc.Data.Bytes))
	}

	size := containerSize(len(doc.Data.Bytes))
	out := make([]byte, int(size)+HeaderSize)

	copy(out[0:4], RiffID[:])
	binary.LittleEndian.PutUint32(out[4:8], size)
	copy(out[8:12], WaveID[:])

	p := ContainerHeaderSize
	copy(out[p:p+4], FmtID[:])
	binary.LittleEndian.PutUint32(out[p+4:p+8], FormatFieldsSize)
	doc.Format.marshal(out[p+HeaderSize : p+HeaderSize+FormatFieldsSize])

	p += HeaderSize + FormatFieldsSize
	copy(out[p:p+4], DataID[:])
	binary.LittleEndian.PutUint32(out[p+4:p+8], uint32(len(doc.Data.Bytes)))
	copy(out[p+HeaderSize:], doc.Data.Bytes)

	slog.Debug("RIFF encode completed",
		"total_bytes", len(out),
		"container_size", size,
		"data_bytes", len(doc.Data.Bytes))

	return out, nil
}

// WriteTo writes the encoded document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	buf, err := Encode(d)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}
