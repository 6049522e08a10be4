package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"riffle.click/internal/audio"
	"riffle.click/internal/riff"
	"riffle.click/internal/tracking"
)

func newPlayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "play FILE",
		Short: "Play a WAV, AIFF or MP3 file",
		Long: `Decode FILE with the matching decoder, re-wrap the samples as WAVE and hand
the buffer to the configured audio backend. Ctrl-C stops playback.

Examples:
  riffle play take1.wav
  riffle --backend oto --volume 0.5 play loop.aiff`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, args[0])
		},
	}
}

func runPlay(cmd *cobra.Command, path string) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return fmt.Errorf("CLI instance not found in context")
	}

	doc, err := play(cmd, cli, path)
	cli.record(cmd.Context(), tracking.NewEvent(path, tracking.OpPlay, doc, err))
	if err != nil {
		return fmt.Errorf("play %s: %w", path, err)
	}
	return nil
}

// play returns the document that was sent to the backend, when decoding got that far
func play(cmd *cobra.Command, cli *CLI, path string) (*riff.Document, error) {
	file, err := cli.fsFactory.ReadOnly(cli.fs).Open(path)
	if err != nil {
		return nil, &riff.DecodeError{Kind: riff.ErrSourceUnavailable, Declared: -1, Available: -1, Err: err}
	}
	defer file.Close()

	registry := audio.NewDefaultRegistry(cli.cfg.DecodeOptions()...)
	data, err := registry.DecodeFile(path, file)
	if err != nil {
		return nil, err
	}

	doc := riff.Build(data.FormatRecord(), data.Samples)
	wav, err := riff.Encode(doc)
	if err != nil {
		return doc, err
	}

	backend, err := cli.playback()
	if err != nil {
		return doc, err
	}

	slog.Info("starting playback",
		"path", path,
		"backend", backend.Name(),
		"format", data.Format.String(),
		"duration_ms", data.Duration().Milliseconds())

	if err := backend.PlayFromBuffer(cmd.Context(), wav); err != nil {
		return doc, err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "played %s (%s, %d ch, %d Hz, %s) via %s\n",
		path, data.Format, data.Channels, data.SampleRate, data.Duration().Round(time.Millisecond), backend.Name())
	return doc, nil
}
