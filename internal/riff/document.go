package riff

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/afero"
)

// DuplicatePolicy decides which instance of a repeated fmt or data chunk is kept.
type DuplicatePolicy int

const (
	// FirstWins keeps the first decoded instance and reports later ones.
	FirstWins DuplicatePolicy = iota
	// LastWins replaces the kept instance with every later one.
	LastWins
)

func (p DuplicatePolicy) String() string {
	if p == LastWins {
		return "last"
	}
	return "first"
}

// Anomaly kinds recorded on a Document.
const (
	AnomalyDuplicateChunk = "duplicate_chunk"
	AnomalyMissingPad     = "missing_pad"
	AnomalySizeMismatch   = "size_mismatch"
)

// Anomaly is a non-fatal irregularity found while decoding.
type Anomaly struct {
	Kind   string
	Tag    [4]byte
	Offset int64
	Detail string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s [%s] at offset %d: %s", a.Kind, TagString(a.Tag), a.Offset, a.Detail)
}

// ChunkInfo describes one chunk header encountered during the scan.
type ChunkInfo struct {
	Header  ChunkHeader
	Offset  int64 // offset of the header
	Skipped bool  // payload was not decoded
}

// Document is a decoded WAVE file. It only exists once both a fmt and a data
// chunk were decoded.
type Document struct {
	Container ContainerHeader
	Format    FormatRecord
	Data      DataBlock

	Chunks    []ChunkInfo
	Anomalies []Anomaly
}

// Duration derives the play time from the data length and byte rate.
func (d *Document) Duration() time.Duration {
	if d == nil || d.Format.ByteRate == 0 {
		return 0
	}
	return time.Duration(float64(d.Data.Len()) / float64(d.Format.ByteRate) * float64(time.Second))
}

// Build assembles a document from a format record and a PCM payload. Length fields
// are filled in the way Encode will write them.
func Build(format FormatRecord, pcm []byte) *Document {
	if pcm == nil {
		pcm = []byte{}
	}
	dataHdr := ChunkHeader{ID: DataID, Size: uint32(len(pcm))}
	return &Document{
		Container: ContainerHeader{
			ChunkHeader: ChunkHeader{ID: RiffID, Size: containerSize(len(pcm))},
			Form:        WaveID,
		},
		Format: format,
		Data:   DataBlock{Header: dataHdr, Bytes: pcm},
	}
}

type options struct {
	policy  DuplicatePolicy
	padding bool
}

// Option configures Decode.
type Option func(*options)

// WithDuplicatePolicy selects which duplicate fmt/data chunk wins. Default FirstWins.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithPadding toggles skipping the RIFF pad byte after odd-sized chunks. Default on.
func WithPadding(enabled bool) Option {
	return func(o *options) { o.padding = enabled }
}

// Decode parses a complete RIFF/WAVE file held in src.
func Decode(src []byte, opts ...Option) (*Document, error) {
	o := options{policy: FirstWins, padding: true}
	for _, opt := range opts {
		opt(&o)
	}

	slog.Debug("starting RIFF decode",
		"source_size", len(src),
		"duplicate_policy", o.policy.String(),
		"padding", o.padding)

	c := NewCursor(src)
	container, err := ValidateContainer(c)
	if err != nil {
		slog.Debug("container validation failed", "error", err)
		return nil, err
	}

	doc := &Document{Container: container}
	if want := int64(container.Size) + HeaderSize; want != int64(len(src)) {
		doc.anomaly(AnomalySizeMismatch, RiffID, 4,
			fmt.Sprintf("container declares %d bytes, source has %d", want, len(src)))
	}

	var fmtSeen, dataSeen bool
	for !c.Exhausted() {
		at := c.Offset()
		hdr, err := c.ReadHeader()
		if err != nil {
			return nil, err
		}
		info := ChunkInfo{Header: hdr, Offset: at}

		switch hdr.ID {
		case FmtID:
			if fmtSeen && o.policy == FirstWins {
				if err := c.Skip(hdr.ID, int64(hdr.Size)); err != nil {
					return nil, err
				}
				info.Skipped = true
				doc.duplicate(hdr, at, o.policy)
				break
			}
			rec, err := decodeFormat(c, hdr)
			if err != nil {
				return nil, err
			}
			if fmtSeen {
				doc.duplicate(hdr, at, o.policy)
			}
			doc.Format = rec
			fmtSeen = true

		case DataID:
			if dataSeen && o.policy == FirstWins {
				// keep the first buffer; the duplicate is never materialized
				if err := c.Skip(hdr.ID, int64(hdr.Size)); err != nil {
					return nil, err
				}
				info.Skipped = true
				doc.duplicate(hdr, at, o.policy)
				break
			}
			block, err := decodeData(c, hdr)
			if err != nil {
				return nil, err
			}
			if dataSeen {
				doc.duplicate(hdr, at, o.policy)
			}
			doc.Data = block
			dataSeen = true

		default:
			slog.Debug("skipping chunk", "tag", TagString(hdr.ID), "offset", at, "size", hdr.Size)
			if err := c.Skip(hdr.ID, int64(hdr.Size)); err != nil {
				return nil, err
			}
			info.Skipped = true
		}
		doc.Chunks = append(doc.Chunks, info)

		if o.padding && hdr.Size%2 == 1 {
			if c.Exhausted() {
				doc.anomaly(AnomalyMissingPad, hdr.ID, c.Offset(), "odd-sized chunk at end of source has no pad byte")
			} else if err := c.Skip(hdr.ID, 1); err != nil {
				return nil, err
			}
		}
	}

	if !fmtSeen || !dataSeen {
		missing := "fmt and data chunks"
		switch {
		case fmtSeen:
			missing = "data chunk"
		case dataSeen:
			missing = "fmt chunk"
		}
		slog.Debug("decode incomplete", "missing", missing)
		return nil, &DecodeError{
			Kind:      ErrIncompleteDocument,
			Offset:    c.Offset(),
			Declared:  -1,
			Available: -1,
			Err:       fmt.Errorf("missing %s", missing),
		}
	}

	slog.Debug("RIFF decode completed",
		"chunks", len(doc.Chunks),
		"data_bytes", doc.Data.Len(),
		"anomalies", len(doc.Anomalies))

	return doc, nil
}

// DecodeReader reads r to the end and decodes the result.
func DecodeReader(r io.Reader, opts ...Option) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Kind: ErrSourceUnavailable, Declared: -1, Available: -1, Err: err}
	}
	return Decode(src, opts...)
}

// DecodeFile reads path from fsys and decodes it.
func DecodeFile(fsys afero.Fs, path string, opts ...Option) (*Document, error) {
	src, err := afero.ReadFile(fsys, path)
	if err != nil {
		slog.Debug("failed to read source file", "path", path, "error", err)
		return nil, &DecodeError{Kind: ErrSourceUnavailable, Declared: -1, Available: -1, Err: err}
	}
	return Decode(src, opts...)
}

func (d *Document) anomaly(kind string, tag [4]byte, offset int64, detail string) {
	a := Anomaly{Kind: kind, Tag: tag, Offset: offset, Detail: detail}
	d.Anomalies = append(d.Anomalies, a)
	slog.Warn("RIFF anomaly", "kind", kind, "tag", TagString(tag), "offset", offset, "detail", detail)
}

func (d *Document) duplicate(hdr ChunkHeader, offset int64, policy DuplicatePolicy) {
	kept := "first instance kept"
	if policy == LastWins {
		kept = "replaced previous instance"
	}
	d.anomaly(AnomalyDuplicateChunk, hdr.ID, offset, fmt.Sprintf("multiple %s chunks, %s", TagString(hdr.ID), kept))
}
