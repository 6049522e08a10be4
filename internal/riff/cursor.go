package riff

import "encoding/binary"

// HeaderSize is the width of a chunk header: 4-byte tag plus little-endian u32 size.
const HeaderSize = 8

// ChunkHeader is the tag and payload length that precede every chunk.
// Size excludes the header itself.
type ChunkHeader struct {
	ID   [4]byte
	Size uint32
}

// Cursor walks chunk headers over an in-memory source.
// It never reads past the end of the source and never copies skipped payloads.
type Cursor struct {
	src []byte
	pos int64
}

// NewCursor returns a cursor positioned at offset 0 of src.
func NewCursor(src []byte) *Cursor {
	return &Cursor{src: src}
}

// Offset returns the current position.
func (c *Cursor) Offset() int64 { return c.pos }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int64 { return int64(len(c.src)) - c.pos }

// Exhausted reports whether every byte has been consumed.
func (c *Cursor) Exhausted() bool { return c.Remaining() <= 0 }

// ReadHeader reads the next chunk header and advances by HeaderSize.
func (c *Cursor) ReadHeader() (ChunkHeader, error) {
	if c.Remaining() < HeaderSize {
		return ChunkHeader{}, lengthError(ErrTruncatedHeader, [4]byte{}, c.pos, HeaderSize, c.Remaining())
	}
	var h ChunkHeader
	copy(h.ID[:], c.src[c.pos:c.pos+4])
	h.Size = binary.LittleEndian.Uint32(c.src[c.pos+4 : c.pos+8])
	c.pos += HeaderSize
	return h, nil
}

// Skip advances by n bytes without materializing them.
func (c *Cursor) Skip(tag [4]byte, n int64) error {
	if n < 0 || n > c.Remaining() {
		return lengthError(ErrTruncatedChunk, tag, c.pos, n, c.Remaining())
	}
	c.pos += n
	return nil
}

// peek returns the next n bytes without advancing. The slice aliases the source.
func (c *Cursor) peek(tag [4]byte, n int64) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, lengthError(ErrTruncatedChunk, tag, c.pos, n, c.Remaining())
	}
	return c.src[c.pos : c.pos+n], nil
}

// Read copies the next n bytes into a freshly allocated buffer.
// n is checked against the remaining length before allocating.
func (c *Cursor) Read(tag [4]byte, n int64) ([]byte, error) {
	view, err := c.peek(tag, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, view)
	c.pos += n
	return out, nil
}
