package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"riffle.click/internal/riff"
	"riffle.click/internal/tracking"
)

// ErrOutputExists is returned when the destination exists and --force was not given
var ErrOutputExists = errors.New("output file already exists")

func newReencodeCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reencode IN OUT",
		Short: "Decode a WAVE file and write a normalized copy",
		Long: `Decode IN and write it to OUT as a canonical WAVE file: one 16-byte fmt chunk
followed by the data chunk, with every length field recomputed. Unknown chunks are dropped.

Examples:
  riffle reencode damaged.wav clean.wav
  riffle --last-wins reencode damaged.wav clean.wav --force`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReencode(cmd, args[0], args[1], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite OUT if it exists")
	return cmd
}

func runReencode(cmd *cobra.Command, in, out string, force bool) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return fmt.Errorf("CLI instance not found in context")
	}

	doc, err := reencode(cli, in, out, force)
	cli.record(cmd.Context(), tracking.NewEvent(in, tracking.OpReencode, doc, err))
	if err != nil {
		return fmt.Errorf("reencode %s: %w", in, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d data bytes, %d chunks dropped, %d anomalies)\n",
		out, doc.Data.Len(), droppedChunks(doc), len(doc.Anomalies))
	return nil
}

func reencode(cli *CLI, in, out string, force bool) (*riff.Document, error) {
	doc, err := riff.DecodeFile(cli.fsFactory.ReadOnly(cli.fs), in, cli.cfg.DecodeOptions()...)
	if err != nil {
		return nil, err
	}

	encoded, err := riff.Encode(doc)
	if err != nil {
		return doc, err
	}

	if err := writeNewFile(cli.fs, out, encoded, force); err != nil {
		slog.Error("failed to write re-encoded file", "path", out, "error", err)
		return doc, fmt.Errorf("write %s: %w", out, err)
	}

	slog.Info("file re-encoded",
		"input", in,
		"output", out,
		"bytes", len(encoded),
		"anomalies", len(doc.Anomalies))
	return doc, nil
}

// droppedChunks counts chunks not carried into the encoded output, which holds exactly one fmt and one data chunk
func droppedChunks(doc *riff.Document) int {
	return max(len(doc.Chunks)-2, 0)
}

// writeNewFile writes data to path, refusing to replace an existing file unless force is set
func writeNewFile(fs afero.Fs, path string, data []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := fs.OpenFile(path, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
