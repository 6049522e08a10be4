package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"riffle.click/internal/riff"
)

// drainPadding covers device buffering after the last frame is handed over
const drainPadding = 500 * time.Millisecond

// MalgoBackend plays buffers on a miniaudio playback device
type MalgoBackend struct {
	backendState
	ctxMutex sync.Mutex
	ctx      *malgo.AllocatedContext
}

// NewMalgoBackend creates a MalgoBackend; the audio context is initialized on first playback
func NewMalgoBackend() *MalgoBackend {
	slog.Debug("creating new MalgoBackend")
	return &MalgoBackend{backendState: backendState{volume: 1.0}}
}

// Name returns the backend type
func (mb *MalgoBackend) Name() string { return "malgo" }

func malgoFormat(f SampleFormat) (malgo.FormatType, error) {
	switch f {
	case FormatU8:
		return malgo.FormatU8, nil
	case FormatS16:
		return malgo.FormatS16, nil
	case FormatS24:
		return malgo.FormatS24, nil
	case FormatS32:
		return malgo.FormatS32, nil
	case FormatF32:
		return malgo.FormatF32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

func (mb *MalgoBackend) audioContext() (*malgo.AllocatedContext, error) {
	mb.ctxMutex.Lock()
	defer mb.ctxMutex.Unlock()

	if mb.ctx != nil {
		return mb.ctx, nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("malgo internal", "message", message)
	})
	if err != nil {
		slog.Error("failed to initialize audio context", "error", err)
		return nil, err
	}

	slog.Info("audio context initialized successfully")
	mb.ctx = ctx
	return ctx, nil
}

// PlayFromBuffer decodes wav and streams its samples to a playback device
func (mb *MalgoBackend) PlayFromBuffer(ctx context.Context, wav []byte) error {
	volume, err := mb.begin()
	if err != nil {
		return playbackError(mb.Name(), "play", err)
	}
	defer mb.end()

	doc, err := riff.Decode(wav)
	if err != nil {
		return playbackError(mb.Name(), "decode", err)
	}
	data, err := DocumentToAudioData(doc)
	if err != nil {
		return playbackError(mb.Name(), "decode", err)
	}
	format, err := malgoFormat(data.Format)
	if err != nil {
		return playbackError(mb.Name(), "configure device", err)
	}
	applyVolume(data.Samples, data.Format, volume)

	select {
	case <-ctx.Done():
		return playbackError(mb.Name(), "play", ctx.Err())
	default:
	}

	audioCtx, err := mb.audioContext()
	if err != nil {
		return playbackError(mb.Name(), "init context", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = data.Channels
	deviceConfig.SampleRate = data.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	bytesPerFrame := int(data.Channels) * data.Format.BytesPerSample()
	done := make(chan struct{})
	var once sync.Once
	offset := 0

	onSamples := func(out, _ []byte, _ uint32) {
		n := copy(out, data.Samples[min(offset, len(data.Samples)):])
		offset += n
		// remaining space must be silence or the device plays garbage
		clear(out[n:])
		if offset >= len(data.Samples) {
			once.Do(func() { close(done) })
		}
	}

	device, err := malgo.InitDevice(audioCtx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		slog.Error("failed to initialize playback device", "error", err)
		return playbackError(mb.Name(), "init device", err)
	}
	defer device.Uninit()

	slog.Debug("playback device initialized",
		"format", data.Format.String(),
		"channels", data.Channels,
		"sample_rate", data.SampleRate,
		"bytes_per_frame", bytesPerFrame)

	if err := device.Start(); err != nil {
		slog.Error("failed to start playback", "error", err)
		return playbackError(mb.Name(), "start device", err)
	}

	timer := time.NewTimer(data.Duration() + drainPadding)
	defer timer.Stop()

	var playErr error
	select {
	case <-ctx.Done():
		slog.Debug("playback context cancelled")
		playErr = ctx.Err()
	case <-done:
		// let the device drain what it already buffered
		select {
		case <-time.After(drainPadding):
		case <-ctx.Done():
		}
	case <-timer.C:
		slog.Warn("playback did not finish in expected time", "expected", data.Duration())
	}

	if err := device.Stop(); err != nil {
		slog.Debug("failed to stop device", "error", err)
	}

	if playErr != nil && !errors.Is(playErr, context.Canceled) {
		return playbackError(mb.Name(), "play", playErr)
	}

	slog.Info("malgo playback completed", "duration_ms", data.Duration().Milliseconds())
	return nil
}

// Close releases the audio context
func (mb *MalgoBackend) Close() error {
	if !mb.markClosed() {
		slog.Debug("MalgoBackend already closed")
		return nil
	}

	mb.ctxMutex.Lock()
	defer mb.ctxMutex.Unlock()
	if mb.ctx == nil {
		return nil
	}

	// malgo requires both Uninit() and Free()
	if err := mb.ctx.Uninit(); err != nil {
		slog.Error("failed to uninitialize audio context", "error", err)
		return playbackError(mb.Name(), "close", err)
	}
	mb.ctx.Free()
	mb.ctx = nil

	slog.Debug("MalgoBackend closed")
	return nil
}
