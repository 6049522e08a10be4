package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/spf13/afero"

	"riffle.click/internal/riff"
)

// CommandRunner runs an external player on a file path
type CommandRunner func(ctx context.Context, command string, args ...string) error

func execRunner(ctx context.Context, command string, args ...string) error {
	return exec.CommandContext(ctx, command, args...).Run()
}

// playerArgs builds the argument list for command playing path
func playerArgs(command, path string) []string {
	if command == "ffplay" {
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", path}
	}
	return []string{path}
}

// SystemCommandBackend plays buffers through a system player such as paplay.
// The buffer is written to a temporary WAV file first.
type SystemCommandBackend struct {
	backendState
	command string
	fs      afero.Fs
	run     CommandRunner
}

// NewSystemCommandBackend creates a backend running command on the OS filesystem
func NewSystemCommandBackend(command string) *SystemCommandBackend {
	return NewSystemCommandBackendWithDependencies(command, afero.NewOsFs(), execRunner)
}

// NewSystemCommandBackendWithDependencies injects the filesystem and runner for testing
func NewSystemCommandBackendWithDependencies(command string, fs afero.Fs, run CommandRunner) *SystemCommandBackend {
	slog.Debug("creating new SystemCommandBackend", "command", command)
	return &SystemCommandBackend{
		backendState: backendState{volume: 1.0},
		command:      command,
		fs:           fs,
		run:          run,
	}
}

// Name returns the backend type
func (scb *SystemCommandBackend) Name() string { return "system_command" }

// Command returns the player command in use
func (scb *SystemCommandBackend) Command() string { return scb.command }

// Close shuts down the backend
func (scb *SystemCommandBackend) Close() error {
	scb.markClosed()
	slog.Debug("SystemCommandBackend closed")
	return nil
}

// PlayFromBuffer writes wav to a temporary file and runs the system player on it
func (scb *SystemCommandBackend) PlayFromBuffer(ctx context.Context, wav []byte) error {
	volume, err := scb.begin()
	if err != nil {
		return playbackError(scb.Name(), "play", err)
	}
	defer scb.end()

	if volume != 1.0 {
		wav, err = scaleWAV(wav, volume)
		if err != nil {
			return playbackError(scb.Name(), "apply volume", err)
		}
	}

	tempFile, err := afero.TempFile(scb.fs, "", "riffle-*.wav")
	if err != nil {
		slog.Error("failed to create temporary file", "error", err)
		return playbackError(scb.Name(), "create temp file", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		if err := scb.fs.Remove(tempPath); err != nil {
			slog.Debug("failed to remove temporary file", "path", tempPath, "error", err)
		}
	}()

	if _, err := tempFile.Write(wav); err != nil {
		tempFile.Close()
		slog.Error("failed to write temporary file", "path", tempPath, "error", err)
		return playbackError(scb.Name(), "write temp file", err)
	}
	if err := tempFile.Close(); err != nil {
		return playbackError(scb.Name(), "close temp file", err)
	}

	slog.Debug("playing file via system command", "file", tempPath, "command", scb.command, "bytes", len(wav))
	if err := scb.run(ctx, scb.command, playerArgs(scb.command, tempPath)...); err != nil {
		slog.Error("system command failed", "command", scb.command, "file", tempPath, "error", err)
		return playbackError(scb.Name(), scb.command, err)
	}

	slog.Debug("system command playback completed", "command", scb.command)
	return nil
}

// scaleWAV decodes wav, applies volume to its samples and re-encodes it
func scaleWAV(wav []byte, volume float32) ([]byte, error) {
	doc, err := riff.Decode(wav)
	if err != nil {
		return nil, err
	}
	data, err := DocumentToAudioData(doc)
	if err != nil {
		return nil, err
	}
	// riff.Decode copied the payload, so scaling in place leaves wav untouched
	applyVolume(data.Samples, data.Format, volume)

	out, err := data.ToWAV()
	if err != nil {
		return nil, fmt.Errorf("re-encode scaled samples: %w", err)
	}
	return out, nil
}
