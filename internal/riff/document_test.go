package riff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"testing/iotest"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMinimal(t *testing.T) {
	doc, err := Decode(minimalWav())
	require.NoError(t, err)

	assert.Equal(t, RiffID, doc.Container.ID)
	assert.Equal(t, WaveID, doc.Container.Form)
	assert.Equal(t, uint32(4+24+12), doc.Container.Size)
	assert.Equal(t, stereo16, doc.Format)
	assert.Equal(t, DataID, doc.Data.Header.ID)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, doc.Data.Bytes)
	assert.Empty(t, doc.Anomalies)
	require.Len(t, doc.Chunks, 2)
	assert.Equal(t, int64(12), doc.Chunks[0].Offset)
	assert.Equal(t, int64(36), doc.Chunks[1].Offset)
}

func TestDecodeDataIsOwned(t *testing.T) {
	src := minimalWav()
	doc, err := Decode(src)
	require.NoError(t, err)

	src[len(src)-1] = 0xEE
	assert.Equal(t, byte(0x04), doc.Data.Bytes[3])
}

func TestDecodeContainerErrors(t *testing.T) {
	testCases := []struct {
		name string
		src  []byte
		want error
	}{
		{"wrong container tag", newWav().withTag("RIFX").fmtChunk(stereo16).dataChunk([]byte{1, 2}).bytes(), ErrNotARiffContainer},
		{"wrong form", newWav().withForm("AVI ").fmtChunk(stereo16).dataChunk([]byte{1, 2}).bytes(), ErrNotWaveForm},
		{"short with wrong tag", []byte("OggS\x00"), ErrNotARiffContainer},
		{"empty", nil, ErrTruncatedHeader},
		{"tag only", []byte("RIFF"), ErrTruncatedHeader},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Decode(tc.src)
			require.ErrorIs(t, err, tc.want)
			assert.Nil(t, doc)
		})
	}
}

func TestDecodeNotRiffStopsBeforeScanning(t *testing.T) {
	// body would fail with a truncated chunk if it were scanned
	src := newWav().withTag("JUNK").chunk("data", 0xFFFFFFFF, nil).bytes()

	_, err := Decode(src)
	require.ErrorIs(t, err, ErrNotARiffContainer)
	assert.NotErrorIs(t, err, ErrTruncatedChunk)

	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, int64(0), decErr.Offset)
	assert.Equal(t, "JUNK", TagString(decErr.Tag))
}

func TestDecodeIncomplete(t *testing.T) {
	testCases := []struct {
		name    string
		src     []byte
		missing string
	}{
		{"no fmt", newWav().dataChunk([]byte{1, 2, 3, 4}).bytes(), "missing fmt chunk"},
		{"no data", newWav().fmtChunk(stereo16).bytes(), "missing data chunk"},
		{"no chunks", newWav().bytes(), "missing fmt and data chunks"},
		{"only unknown", newWav().chunk("LIST", 4, []byte("INFO")).bytes(), "missing fmt and data chunks"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.src)
			require.ErrorIs(t, err, ErrIncompleteDocument)
			assert.Contains(t, err.Error(), tc.missing)
		})
	}
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	pcm := []byte{9, 8, 7, 6, 5, 4, 3, 2}
	plain, err := Decode(newWav().fmtChunk(stereo16).dataChunk(pcm).bytes())
	require.NoError(t, err)

	src := newWav().
		chunk("LIST", 10, []byte("INFOISFT\x02\x00")).
		chunk("JUNK", 4, []byte{0, 0, 0, 0}).
		fmtChunk(stereo16).
		chunk("fact", 4, []byte{2, 0, 0, 0}).
		dataChunk(pcm).
		chunk("id3 ", 2, []byte{0, 0}).
		bytes()

	doc, err := Decode(src)
	require.NoError(t, err)
	assert.Equal(t, plain.Format, doc.Format)
	assert.Equal(t, plain.Data.Bytes, doc.Data.Bytes)

	require.Len(t, doc.Chunks, 6)
	assert.True(t, doc.Chunks[0].Skipped)
	assert.False(t, doc.Chunks[2].Skipped)
	assert.Equal(t, "fact", TagString(doc.Chunks[3].Header.ID))
}

func TestDecodeFormatExtension(t *testing.T) {
	payload := make([]byte, 18)
	stereo16.marshal(payload)
	src := newWav().chunk("fmt ", 18, payload).dataChunk([]byte{1, 2}).bytes()

	doc, err := Decode(src)
	require.NoError(t, err)
	assert.Equal(t, stereo16, doc.Format)
	assert.Equal(t, []byte{1, 2}, doc.Data.Bytes)
}

func TestDecodeMalformedFormat(t *testing.T) {
	src := newWav().chunk("fmt ", 14, make([]byte, 14)).dataChunk([]byte{1, 2}).bytes()

	_, err := Decode(src)
	require.ErrorIs(t, err, ErrMalformedFormatChunk)
	assert.Contains(t, err.Error(), "[fmt ]")
	assert.Contains(t, err.Error(), "at offset 20")
	assert.Contains(t, err.Error(), "payload of 14 bytes is shorter than the 16-byte minimum")
	assert.NotContains(t, err.Error(), "available")
}

func extensiblePayload(bits uint16, cbSize uint16, subFormat uint16) []byte {
	payload := make([]byte, 40)
	FormatRecord{
		AudioFormat:   FormatExtensible,
		NumChannels:   2,
		SampleRate:    48000,
		ByteRate:      48000 * 2 * uint32(bits/8),
		BlockAlign:    2 * bits / 8,
		BitsPerSample: bits,
	}.marshal(payload)
	binary.LittleEndian.PutUint16(payload[16:18], cbSize)
	binary.LittleEndian.PutUint16(payload[18:20], bits)
	binary.LittleEndian.PutUint32(payload[20:24], 0x3)
	binary.LittleEndian.PutUint16(payload[24:26], subFormat)
	copy(payload[26:], []byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71})
	return payload
}

func TestDecodeExtensibleFormat(t *testing.T) {
	t.Run("float sub-format", func(t *testing.T) {
		src := newWav().chunk("fmt ", 40, extensiblePayload(32, 22, FormatIEEEFloat)).dataChunk(make([]byte, 8)).bytes()

		doc, err := Decode(src)
		require.NoError(t, err)
		assert.Equal(t, FormatExtensible, doc.Format.AudioFormat)
		assert.Equal(t, FormatIEEEFloat, doc.Format.SubFormat)
		assert.Equal(t, FormatIEEEFloat, doc.Format.EffectiveFormat())
		assert.Equal(t, "extensible IEEE float", doc.Format.FormatName())
		assert.Equal(t, 8, doc.Data.Len())
	})

	t.Run("pcm sub-format", func(t *testing.T) {
		src := newWav().chunk("fmt ", 40, extensiblePayload(24, 22, FormatPCM)).dataChunk(make([]byte, 6)).bytes()

		doc, err := Decode(src)
		require.NoError(t, err)
		assert.Equal(t, FormatPCM, doc.Format.EffectiveFormat())
	})

	t.Run("cbSize too small for a GUID", func(t *testing.T) {
		src := newWav().chunk("fmt ", 40, extensiblePayload(32, 0, FormatIEEEFloat)).dataChunk(make([]byte, 8)).bytes()

		doc, err := Decode(src)
		require.NoError(t, err)
		assert.Zero(t, doc.Format.SubFormat)
		assert.Equal(t, FormatExtensible, doc.Format.EffectiveFormat())
	})

	t.Run("short extension", func(t *testing.T) {
		src := newWav().chunk("fmt ", 18, extensiblePayload(32, 22, FormatIEEEFloat)[:18]).dataChunk(make([]byte, 8)).bytes()

		doc, err := Decode(src)
		require.NoError(t, err)
		assert.Zero(t, doc.Format.SubFormat)
	})

	t.Run("plain pcm has no sub-format", func(t *testing.T) {
		doc, err := Decode(minimalWav())
		require.NoError(t, err)
		assert.Zero(t, doc.Format.SubFormat)
		assert.Equal(t, doc.Format.AudioFormat, doc.Format.EffectiveFormat())
	})
}

func TestDecodeTruncation(t *testing.T) {
	full := minimalWav()

	t.Run("first ten bytes", func(t *testing.T) {
		_, err := Decode(full[:10])
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTruncatedHeader) || errors.Is(err, ErrTruncatedChunk), "got %v", err)
	})

	t.Run("every prefix fails cleanly", func(t *testing.T) {
		for n := 0; n < len(full); n++ {
			doc, err := Decode(full[:n])
			require.Error(t, err, "prefix %d", n)
			assert.Nil(t, doc)
		}
	})

	t.Run("partial header after data", func(t *testing.T) {
		src := append(minimalWav(), 'L', 'I', 'S')
		_, err := Decode(src)
		require.ErrorIs(t, err, ErrTruncatedHeader)
	})

	t.Run("unknown chunk overruns source", func(t *testing.T) {
		src := newWav().fmtChunk(stereo16).chunk("LIST", 100, []byte("INFO")).bytes()
		_, err := Decode(src)
		require.ErrorIs(t, err, ErrTruncatedChunk)
	})

	t.Run("fmt declares more than present", func(t *testing.T) {
		payload := make([]byte, 16)
		stereo16.marshal(payload)
		src := newWav().chunk("fmt ", 40, payload).bytes()
		_, err := Decode(src)
		require.ErrorIs(t, err, ErrTruncatedChunk)
	})
}

func TestDecodeOversizedDataLength(t *testing.T) {
	src := newWav().fmtChunk(stereo16).chunk("data", 0xFFFFFFFF, []byte{1, 2, 3, 4}).bytes()

	doc, err := Decode(src)
	require.ErrorIs(t, err, ErrTruncatedChunk)
	assert.Nil(t, doc)

	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, DataID, decErr.Tag)
	assert.Equal(t, int64(0xFFFFFFFF), decErr.Declared)
	assert.Equal(t, int64(4), decErr.Available)
	assert.Equal(t, int64(44), decErr.Offset)
}

func TestDecodeDuplicateChunks(t *testing.T) {
	mono8 := FormatRecord{AudioFormat: FormatPCM, NumChannels: 1, SampleRate: 8000, ByteRate: 8000, BlockAlign: 1, BitsPerSample: 8}
	src := newWav().
		fmtChunk(stereo16).
		dataChunk([]byte{1, 1, 1, 1}).
		fmtChunk(mono8).
		dataChunk([]byte{2, 2}).
		bytes()

	t.Run("first wins by default", func(t *testing.T) {
		doc, err := Decode(src)
		require.NoError(t, err)
		assert.Equal(t, stereo16, doc.Format)
		assert.Equal(t, []byte{1, 1, 1, 1}, doc.Data.Bytes)
		require.Len(t, doc.Anomalies, 2)
		assert.Equal(t, AnomalyDuplicateChunk, doc.Anomalies[0].Kind)
		assert.Equal(t, FmtID, doc.Anomalies[0].Tag)
		assert.Equal(t, DataID, doc.Anomalies[1].Tag)
		assert.True(t, doc.Chunks[2].Skipped)
		assert.True(t, doc.Chunks[3].Skipped)
	})

	t.Run("last wins", func(t *testing.T) {
		doc, err := Decode(src, WithDuplicatePolicy(LastWins))
		require.NoError(t, err)
		assert.Equal(t, mono8, doc.Format)
		assert.Equal(t, []byte{2, 2}, doc.Data.Bytes)
		assert.Len(t, doc.Anomalies, 2)
	})

	t.Run("first wins never parses a duplicate fmt", func(t *testing.T) {
		bad := newWav().fmtChunk(stereo16).chunk("fmt ", 14, make([]byte, 14)).dataChunk([]byte{1, 2}).bytes()

		doc, err := Decode(bad)
		require.NoError(t, err)
		assert.Equal(t, stereo16, doc.Format)
		assert.True(t, doc.Chunks[1].Skipped)
		require.Len(t, doc.Anomalies, 1)
		assert.Equal(t, FmtID, doc.Anomalies[0].Tag)

		_, err = Decode(bad, WithDuplicatePolicy(LastWins))
		require.ErrorIs(t, err, ErrMalformedFormatChunk)
	})

	t.Run("truncated duplicate still fails", func(t *testing.T) {
		bad := newWav().fmtChunk(stereo16).dataChunk([]byte{1, 2}).chunk("data", 1000, []byte{3}).bytes()
		_, err := Decode(bad)
		require.ErrorIs(t, err, ErrTruncatedChunk)
	})
}

func TestDecodePadding(t *testing.T) {
	// LIST with 3 payload bytes followed by a pad byte, as RIFF writers emit it
	src := newWav().
		chunk("LIST", 3, []byte{'a', 'b', 'c', 0}).
		fmtChunk(stereo16).
		dataChunk([]byte{1, 2, 3, 4}).
		bytes()

	t.Run("pad byte skipped by default", func(t *testing.T) {
		doc, err := Decode(src)
		require.NoError(t, err)
		assert.Equal(t, stereo16, doc.Format)
		assert.Equal(t, int64(24), doc.Chunks[1].Offset)
	})

	t.Run("without padding the scan misaligns", func(t *testing.T) {
		_, err := Decode(src, WithPadding(false))
		require.Error(t, err)
	})

	t.Run("odd data at end without pad is tolerated", func(t *testing.T) {
		odd := newWav().fmtChunk(stereo16).dataChunk([]byte{1, 2, 3}).bytes()
		doc, err := Decode(odd)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, doc.Data.Bytes)
		require.Len(t, doc.Anomalies, 1)
		assert.Equal(t, AnomalyMissingPad, doc.Anomalies[0].Kind)
	})
}

func TestDecodeContainerSizeMismatch(t *testing.T) {
	src := newWav().withContainerSize(9999).fmtChunk(stereo16).dataChunk([]byte{1, 2}).bytes()

	doc, err := Decode(src)
	require.NoError(t, err)
	require.Len(t, doc.Anomalies, 1)
	assert.Equal(t, AnomalySizeMismatch, doc.Anomalies[0].Kind)
	assert.Equal(t, uint32(9999), doc.Container.Size)
}

func TestDecodeReader(t *testing.T) {
	doc, err := DecodeReader(bytes.NewReader(minimalWav()))
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Data.Len())

	_, err = DecodeReader(iotest.ErrReader(errors.New("disk on fire")))
	require.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestDecodeFile(t *testing.T) {
	memFS := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFS, "/sounds/beep.wav", minimalWav(), 0644))

	doc, err := DecodeFile(memFS, "/sounds/beep.wav")
	require.NoError(t, err)
	assert.Equal(t, stereo16, doc.Format)

	_, err = DecodeFile(memFS, "/sounds/missing.wav")
	require.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, "source_unavailable", KindName(err))
}

func TestDocumentDuration(t *testing.T) {
	pcm := make([]byte, 176400/2)
	doc := Build(stereo16, pcm)
	assert.Equal(t, 500*time.Millisecond, doc.Duration())

	assert.Equal(t, time.Duration(0), (&Document{}).Duration())
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "", KindName(nil))
	assert.Equal(t, "not_riff", KindName(newError(ErrNotARiffContainer, [4]byte{}, 0)))
	assert.Equal(t, "other", KindName(errors.New("x")))

	_, err := Decode(newWav().dataChunk([]byte{1}).bytes())
	assert.Equal(t, "incomplete_document", KindName(err))
}

func TestDecodeReadsLittleEndian(t *testing.T) {
	src := minimalWav()
	// patch sample rate field to 48000
	binary.LittleEndian.PutUint32(src[24:28], 48000)

	doc, err := Decode(src)
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), doc.Format.SampleRate)
}
