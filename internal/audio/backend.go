package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors for Playback implementations
var (
	ErrBackendNotAvailable = errors.New("audio backend not available")
	ErrBackendClosed       = errors.New("audio backend is closed")
	ErrInvalidVolume       = errors.New("invalid volume level")
)

// PlaybackError reports a failure to play a buffer
type PlaybackError struct {
	Backend string
	Op      string
	Err     error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("%s backend: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

func playbackError(backend, op string, err error) error {
	return &PlaybackError{Backend: backend, Op: op, Err: err}
}

// Playback plays WAV buffers produced by riff.Encode. Implementations handle
// the actual output mechanism (malgo, oto, system commands).
type Playback interface {
	// PlayFromBuffer plays a complete RIFF/WAVE buffer and blocks until it has
	// finished or ctx is done. Failures are *PlaybackError.
	PlayFromBuffer(ctx context.Context, wav []byte) error

	SetVolume(volume float32) error
	GetVolume() float32
	IsPlaying() bool

	// Name identifies the backend type
	Name() string

	Close() error
}

func validateVolume(volume float32) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("%w: %f (must be 0.0-1.0)", ErrInvalidVolume, volume)
	}
	return nil
}

// backendState is the volume/lifecycle bookkeeping shared by every backend
type backendState struct {
	mutex     sync.RWMutex
	volume    float32
	isPlaying bool
	closed    bool
}

// SetVolume sets the volume level (0.0 to 1.0)
func (s *backendState) SetVolume(volume float32) error {
	if err := validateVolume(volume); err != nil {
		slog.Error("invalid volume setting", "volume", volume, "error", err)
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return ErrBackendClosed
	}

	slog.Debug("volume changed", "old_volume", s.volume, "new_volume", volume)
	s.volume = volume
	return nil
}

// GetVolume returns the current volume level
func (s *backendState) GetVolume() float32 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.volume
}

// IsPlaying reports whether a buffer is currently being played
func (s *backendState) IsPlaying() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.isPlaying && !s.closed
}

// begin marks playback as started, failing if the backend is closed
func (s *backendState) begin() (float32, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return 0, ErrBackendClosed
	}
	s.isPlaying = true
	return s.volume, nil
}

func (s *backendState) end() {
	s.mutex.Lock()
	s.isPlaying = false
	s.mutex.Unlock()
}

// markClosed returns false if the backend was already closed
func (s *backendState) markClosed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.isPlaying = false
	return true
}
