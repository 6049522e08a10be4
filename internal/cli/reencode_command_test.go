package cli

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riffle.click/internal/riff"
)

func TestReencodeDropsUnknownChunks(t *testing.T) {
	h := newHarness(t)
	h.writeFile(t, "/in.wav", listWAV())

	code, stdout, stderr := h.run("reencode", "/in.wav", "/out.wav")

	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "wrote /out.wav (8 data bytes, 1 chunks dropped, 0 anomalies)\n", stdout)

	out, err := afero.ReadFile(h.fs, "/out.wav")
	require.NoError(t, err)
	assert.Len(t, out, 44+8)

	doc, err := riff.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, mono16, doc.Format)
	assert.Equal(t, halfScalePCM(), doc.Data.Bytes)
	require.Len(t, doc.Chunks, 2)
	assert.Equal(t, riff.FmtID, doc.Chunks[0].Header.ID)
	assert.Equal(t, riff.DataID, doc.Chunks[1].Header.ID)
	assert.Empty(t, doc.Anomalies)
}

func TestReencodeFixesContainerSize(t *testing.T) {
	h := newHarness(t)
	wav := listWAV()
	// overstate the container length
	wav[4] += 100
	h.writeFile(t, "/in.wav", wav)

	code, stdout, stderr := h.run("reencode", "/in.wav", "/out.wav")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "1 anomalies")

	out, err := afero.ReadFile(h.fs, "/out.wav")
	require.NoError(t, err)
	doc, err := riff.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(out)-8), doc.Container.Size)
	assert.Empty(t, doc.Anomalies)
}

func TestReencodeRefusesToOverwrite(t *testing.T) {
	h := newHarness(t)
	h.writeFile(t, "/in.wav", listWAV())
	h.writeFile(t, "/out.wav", []byte("keep me"))

	code, _, stderr := h.run("reencode", "/in.wav", "/out.wav")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, ErrOutputExists.Error())
	kept, err := afero.ReadFile(h.fs, "/out.wav")
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(kept))

	code, _, stderr = h.run("reencode", "--force", "/in.wav", "/out.wav")
	require.Equal(t, 0, code, stderr)
	replaced, err := afero.ReadFile(h.fs, "/out.wav")
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(replaced[:4]))
}

func TestReencodeInvalidInput(t *testing.T) {
	h := newHarness(t)
	h.writeFile(t, "/in.wav", []byte("RIFF\x04\x00\x00\x00AVI "))

	code, _, stderr := h.run("reencode", "/in.wav", "/out.wav")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not a WAVE form")
	exists, err := afero.Exists(h.fs, "/out.wav")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReencodeNeedsTwoArgs(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("reencode", "/in.wav")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "accepts 2 arg(s)")
}
