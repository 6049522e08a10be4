package riff

import "encoding/binary"

// wavBuilder assembles raw RIFF bytes for tests, including deliberately broken ones.
type wavBuilder struct {
	chunks    [][]byte
	sizeField *uint32
	tag       string
	form      string
}

func newWav() *wavBuilder {
	return &wavBuilder{tag: "RIFF", form: "WAVE"}
}

func (b *wavBuilder) withTag(tag string) *wavBuilder   { b.tag = tag; return b }
func (b *wavBuilder) withForm(form string) *wavBuilder { b.form = form; return b }

func (b *wavBuilder) withContainerSize(size uint32) *wavBuilder {
	b.sizeField = &size
	return b
}

// chunk appends a chunk with the given tag, declared size and payload.
func (b *wavBuilder) chunk(tag string, declared uint32, payload []byte) *wavBuilder {
	c := make([]byte, 8, 8+len(payload))
	copy(c[0:4], tag)
	binary.LittleEndian.PutUint32(c[4:8], declared)
	b.chunks = append(b.chunks, append(c, payload...))
	return b
}

func (b *wavBuilder) raw(payload []byte) *wavBuilder {
	b.chunks = append(b.chunks, payload)
	return b
}

func (b *wavBuilder) fmtChunk(f FormatRecord) *wavBuilder {
	payload := make([]byte, FormatFieldsSize)
	f.marshal(payload)
	return b.chunk("fmt ", FormatFieldsSize, payload)
}

func (b *wavBuilder) dataChunk(pcm []byte) *wavBuilder {
	return b.chunk("data", uint32(len(pcm)), pcm)
}

func (b *wavBuilder) bytes() []byte {
	var body []byte
	for _, c := range b.chunks {
		body = append(body, c...)
	}
	out := make([]byte, 12, 12+len(body))
	copy(out[0:4], b.tag)
	size := uint32(4 + len(body))
	if b.sizeField != nil {
		size = *b.sizeField
	}
	binary.LittleEndian.PutUint32(out[4:8], size)
	copy(out[8:12], b.form)
	return append(out, body...)
}

var stereo16 = FormatRecord{
	AudioFormat:   FormatPCM,
	NumChannels:   2,
	SampleRate:    44100,
	ByteRate:      176400,
	BlockAlign:    4,
	BitsPerSample: 16,
}

func minimalWav() []byte {
	return newWav().fmtChunk(stereo16).dataChunk([]byte{0x01, 0x02, 0x03, 0x04}).bytes()
}
