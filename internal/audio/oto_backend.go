package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"riffle.click/internal/riff"
)

// oto allows a single context per process; its rate and channel count are fixed at creation
var (
	otoOnce     sync.Once
	otoCtx      *oto.Context
	otoCtxErr   error
	otoRate     int
	otoChannels int
)

// ErrContextMismatch is returned when a buffer does not match the process-wide oto context
var ErrContextMismatch = errors.New("buffer layout does not match the active oto context")

func sharedOtoContext(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		slog.Debug("creating oto context", "sample_rate", sampleRate, "channels", channels)
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			slog.Error("failed to create oto context", "error", err)
			otoCtxErr = err
			return
		}
		<-ready
		otoCtx, otoRate, otoChannels = ctx, sampleRate, channels
		slog.Info("oto context ready", "sample_rate", sampleRate, "channels", channels)
	})
	if otoCtxErr != nil {
		return nil, otoCtxErr
	}
	if otoRate != sampleRate || otoChannels != channels {
		return nil, fmt.Errorf("%w: context is %d Hz/%d ch, buffer is %d Hz/%d ch",
			ErrContextMismatch, otoRate, otoChannels, sampleRate, channels)
	}
	return otoCtx, nil
}

// OtoBackend plays buffers through an ebitengine/oto player
type OtoBackend struct {
	backendState
}

// NewOtoBackend creates an OtoBackend; the shared oto context is created on first playback
func NewOtoBackend() *OtoBackend {
	slog.Debug("creating new OtoBackend")
	return &OtoBackend{backendState: backendState{volume: 1.0}}
}

// Name returns the backend type
func (ob *OtoBackend) Name() string { return "oto" }

// Close marks the backend closed. The oto context lives for the whole process.
func (ob *OtoBackend) Close() error {
	ob.markClosed()
	slog.Debug("OtoBackend closed")
	return nil
}

// toFloat32LE converts integer PCM to little-endian float32 samples
func toFloat32LE(data *AudioData) ([]byte, error) {
	if data.Format == FormatF32 {
		return data.Samples, nil
	}
	buf, err := data.IntBuffer()
	if err != nil {
		return nil, err
	}
	fb := buf.AsFloat32Buffer()
	fullScale := float32(int64(1) << (data.Format.BitDepth() - 1))
	out := make([]byte, 4*len(fb.Data))
	for i, v := range fb.Data {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v/fullScale))
	}
	return out, nil
}

// PlayFromBuffer decodes wav and plays it on the shared oto context
func (ob *OtoBackend) PlayFromBuffer(ctx context.Context, wav []byte) error {
	volume, err := ob.begin()
	if err != nil {
		return playbackError(ob.Name(), "play", err)
	}
	defer ob.end()

	doc, err := riff.Decode(wav)
	if err != nil {
		return playbackError(ob.Name(), "decode", err)
	}
	data, err := DocumentToAudioData(doc)
	if err != nil {
		return playbackError(ob.Name(), "decode", err)
	}
	samples, err := toFloat32LE(data)
	if err != nil {
		return playbackError(ob.Name(), "convert samples", err)
	}

	otoContext, err := sharedOtoContext(int(data.SampleRate), int(data.Channels))
	if err != nil {
		return playbackError(ob.Name(), "init context", err)
	}

	player := otoContext.NewPlayer(bytes.NewReader(samples))
	defer func() {
		if err := player.Close(); err != nil {
			slog.Debug("failed to close oto player", "error", err)
		}
	}()
	player.SetVolume(float64(volume))
	player.Play()

	slog.Debug("oto playback started",
		"format", data.Format.String(),
		"frames", data.Frames(),
		"volume", volume)

	deadline := time.NewTimer(data.Duration() + drainPadding)
	defer deadline.Stop()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			if errors.Is(ctx.Err(), context.Canceled) {
				slog.Debug("oto playback cancelled")
				return nil
			}
			return playbackError(ob.Name(), "play", ctx.Err())
		case <-deadline.C:
			slog.Warn("playback did not finish in expected time", "expected", data.Duration())
			player.Pause()
			return nil
		case <-ticker.C:
		}
	}

	if err := player.Err(); err != nil {
		return playbackError(ob.Name(), "play", err)
	}

	slog.Info("oto playback completed", "duration_ms", data.Duration().Milliseconds())
	return nil
}
