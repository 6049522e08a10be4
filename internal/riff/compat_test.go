package riff

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	youpywav "github.com/youpy/go-wav"
)

func rampPCM(frames int) []byte {
	pcm := make([]byte, frames*4)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(pcm[i*4:], uint16(int16(i*10)))
		binary.LittleEndian.PutUint16(pcm[i*4+2:], uint16(int16(-i*10)))
	}
	return pcm
}

func TestEncodedOutputReadableByYoupyWav(t *testing.T) {
	out, err := Encode(Build(stereo16, rampPCM(64)))
	require.NoError(t, err)

	reader := youpywav.NewReader(bytes.NewReader(out))
	format, err := reader.Format()
	require.NoError(t, err)
	assert.Equal(t, uint16(2), format.NumChannels)
	assert.Equal(t, uint32(44100), format.SampleRate)
	assert.Equal(t, uint16(16), format.BitsPerSample)

	var samples []youpywav.Sample
	for {
		batch, err := reader.ReadSamples()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		samples = append(samples, batch...)
	}
	require.Len(t, samples, 64)
	assert.Equal(t, 50, samples[5].Values[0])
	assert.Equal(t, -50, samples[5].Values[1])
}

func TestEncodedOutputReadableByBeep(t *testing.T) {
	out, err := Encode(Build(stereo16, rampPCM(32)))
	require.NoError(t, err)

	streamer, format, err := wav.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	defer streamer.Close()

	assert.Equal(t, 44100, int(format.SampleRate))
	assert.Equal(t, 2, format.NumChannels)
	assert.Equal(t, 2, format.Precision)
	assert.Equal(t, 32, streamer.Len())
}

func TestEncodedOutputReadableByGoAudioWav(t *testing.T) {
	out, err := Encode(Build(stereo16, rampPCM(16)))
	require.NoError(t, err)

	dec := gowav.NewDecoder(bytes.NewReader(out))
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, uint32(44100), dec.SampleRate)
	assert.Equal(t, uint16(2), dec.NumChans)
	assert.Equal(t, uint16(16), dec.BitDepth)
	require.Len(t, buf.Data, 32)
	assert.Equal(t, 30, buf.Data[6])
	assert.Equal(t, -30, buf.Data[7])
}

func TestDecodesGoAudioWavOutput(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "ext.wav"))
	require.NoError(t, err)
	defer f.Close()

	enc := gowav.NewEncoder(f, 8000, 16, 1, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           []int{0, 1000, -1000, 32767, -32768},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	doc, err := DecodeReader(f)
	require.NoError(t, err)

	assert.Equal(t, FormatPCM, doc.Format.AudioFormat)
	assert.Equal(t, uint32(8000), doc.Format.SampleRate)
	assert.Equal(t, uint16(16), doc.Format.BitsPerSample)
	assert.Equal(t, 10, doc.Data.Len())
	assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(doc.Data.Bytes[6:])))
}
