package riff

import "log/slog"

// DataBlock is the sample payload. Bytes is owned by the block and has length Header.Size.
type DataBlock struct {
	Header ChunkHeader
	Bytes  []byte
}

// Len returns the payload length.
func (d DataBlock) Len() int { return len(d.Bytes) }

// decodeData copies a data chunk payload into an owned buffer. The declared size is
// untrusted and is checked against the remaining source before allocating.
func decodeData(c *Cursor, hdr ChunkHeader) (DataBlock, error) {
	start := c.Offset()
	if int64(hdr.Size) > c.Remaining() {
		slog.Debug("data chunk exceeds source",
			"offset", start,
			"declared", hdr.Size,
			"available", c.Remaining())
		return DataBlock{}, lengthError(ErrTruncatedChunk, hdr.ID, start, int64(hdr.Size), c.Remaining())
	}

	buf, err := c.Read(hdr.ID, int64(hdr.Size))
	if err != nil {
		return DataBlock{}, err
	}

	slog.Debug("data chunk decoded", "offset", start, "bytes", len(buf))
	return DataBlock{Header: hdr, Bytes: buf}, nil
}
