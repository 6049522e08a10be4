package riff

import (
	"log/slog"

	goriff "github.com/go-audio/riff"
)

// Chunk identifiers, shared with the go-audio RIFF parser.
var (
	RiffID = goriff.RiffID
	WaveID = goriff.WavFormatID
	FmtID  = goriff.FmtID
	DataID = goriff.DataFormatID
)

// ContainerHeaderSize covers tag, size and form type.
const ContainerHeaderSize = HeaderSize + 4

// ContainerHeader is the outer RIFF chunk header plus its form type.
type ContainerHeader struct {
	ChunkHeader
	Form [4]byte
}

// ValidateContainer consumes the 12-byte outer header and checks the RIFF tag and WAVE form.
// On success the cursor sits on the first inner chunk header.
func ValidateContainer(c *Cursor) (ContainerHeader, error) {
	start := c.Offset()
	if c.Remaining() < ContainerHeaderSize {
		// Distinguish "wrong magic" from "too short" when at least the tag is present.
		if c.Remaining() >= 4 {
			if view, _ := c.peek([4]byte{}, 4); view != nil && [4]byte(view) != RiffID {
				return ContainerHeader{}, newError(ErrNotARiffContainer, [4]byte(view), start)
			}
		}
		return ContainerHeader{}, lengthError(ErrTruncatedHeader, RiffID, start, ContainerHeaderSize, c.Remaining())
	}

	hdr, err := c.ReadHeader()
	if err != nil {
		return ContainerHeader{}, err
	}
	if hdr.ID != RiffID {
		slog.Debug("container tag mismatch", "tag", TagString(hdr.ID), "expected", TagString(RiffID))
		return ContainerHeader{}, newError(ErrNotARiffContainer, hdr.ID, start)
	}

	form, _ := c.peek(RiffID, 4)
	container := ContainerHeader{ChunkHeader: hdr, Form: [4]byte(form)}
	if container.Form != WaveID {
		slog.Debug("form type mismatch", "form", TagString(container.Form), "expected", TagString(WaveID))
		return ContainerHeader{}, newError(ErrNotWaveForm, container.Form, start+HeaderSize)
	}
	c.pos += 4

	slog.Debug("container validated",
		"declared_size", container.Size,
		"source_size", len(c.src))

	return container, nil
}
