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

type toneOptions struct {
	frequency float64
	duration  time.Duration
	rate      int
	bits      int
	channels  int
	amplitude float64
	force     bool
	play      bool
}

func newToneCommand() *cobra.Command {
	var opts toneOptions

	cmd := &cobra.Command{
		Use:   "tone OUT",
		Short: "Write a sine test tone as a WAVE file",
		Long: `Generate a sine wave and write it to OUT as integer PCM WAVE.

Examples:
  riffle tone a440.wav
  riffle tone --freq 1000 --duration 250ms --rate 48000 --bits 24 beep.wav
  riffle tone --play check.wav`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTone(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.frequency, "freq", 440, "Frequency in Hz")
	flags.DurationVar(&opts.duration, "duration", time.Second, "Length of the tone")
	flags.IntVar(&opts.rate, "rate", 44100, "Sample rate in Hz")
	flags.IntVar(&opts.bits, "bits", 16, "Bits per sample (8, 16, 24, 32)")
	flags.IntVar(&opts.channels, "channels", 1, "Channel count")
	flags.Float64Var(&opts.amplitude, "amplitude", 0.5, "Peak amplitude as a fraction of full scale")
	flags.BoolVarP(&opts.force, "force", "f", false, "Overwrite OUT if it exists")
	flags.BoolVar(&opts.play, "play", false, "Play the tone after writing it")

	return cmd
}

func runTone(cmd *cobra.Command, out string, opts toneOptions) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return fmt.Errorf("CLI instance not found in context")
	}

	if opts.frequency <= 0 || opts.frequency >= float64(opts.rate)/2 {
		return fmt.Errorf("frequency must be between 0 and %g Hz for a %d Hz sample rate", float64(opts.rate)/2, opts.rate)
	}

	data, err := audio.GenerateTone(audio.ToneSpec{
		Frequency:  opts.frequency,
		SampleRate: opts.rate,
		Channels:   opts.channels,
		BitDepth:   opts.bits,
		Seconds:    opts.duration.Seconds(),
		Amplitude:  opts.amplitude,
	})
	if err != nil {
		cli.record(cmd.Context(), tracking.NewEvent(out, tracking.OpTone, nil, err))
		return fmt.Errorf("generate tone: %w", err)
	}

	doc := riff.Build(data.FormatRecord(), data.Samples)
	wav, err := riff.Encode(doc)
	if err == nil {
		err = writeNewFile(cli.fs, out, wav, opts.force)
	}
	cli.record(cmd.Context(), tracking.NewEvent(out, tracking.OpTone, doc, err))
	if err != nil {
		return fmt.Errorf("write tone %s: %w", out, err)
	}

	slog.Info("tone written", "path", out, "bytes", len(wav), "frequency", opts.frequency)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%g Hz, %s, %d Hz, %d bit, %d ch)\n",
		out, opts.frequency, opts.duration, opts.rate, opts.bits, opts.channels)

	if !opts.play {
		return nil
	}

	backend, err := cli.playback()
	if err != nil {
		return err
	}
	if err := backend.PlayFromBuffer(cmd.Context(), wav); err != nil {
		return fmt.Errorf("play tone: %w", err)
	}
	return nil
}
