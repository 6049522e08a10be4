package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"riffle.click/internal/audio"
	"riffle.click/internal/riff"
	"riffle.click/internal/tracking"
)

// InspectReport is the decoded view of one WAVE file
type InspectReport struct {
	Path      string          `json:"path"`
	Container ContainerReport `json:"container"`
	Format    FormatReport    `json:"format"`
	Data      DataReport      `json:"data"`
	Chunks    []ChunkReport   `json:"chunks"`
	Anomalies []AnomalyReport `json:"anomalies,omitempty"`
	Levels    *LevelsReport   `json:"levels,omitempty"`
}

// ContainerReport describes the outer RIFF header
type ContainerReport struct {
	Tag  string `json:"tag"`
	Size uint32 `json:"size"`
	Form string `json:"form"`
}

// FormatReport describes the fmt chunk
type FormatReport struct {
	AudioFormat   uint16 `json:"audio_format"`
	Name          string `json:"name"`
	Channels      uint16 `json:"channels"`
	SampleRate    uint32 `json:"sample_rate"`
	ByteRate      uint32 `json:"byte_rate"`
	BlockAlign    uint16 `json:"block_align"`
	BitsPerSample uint16 `json:"bits_per_sample"`
}

// DataReport describes the data chunk
type DataReport struct {
	Bytes      int     `json:"bytes"`
	DurationMS float64 `json:"duration_ms"`
}

// ChunkReport is one chunk header seen during the scan
type ChunkReport struct {
	Tag     string `json:"tag"`
	Offset  int64  `json:"offset"`
	Size    uint32 `json:"size"`
	Skipped bool   `json:"skipped"`
}

// AnomalyReport is one non-fatal irregularity
type AnomalyReport struct {
	Kind   string `json:"kind"`
	Tag    string `json:"tag"`
	Offset int64  `json:"offset"`
	Detail string `json:"detail"`
}

// LevelsReport holds PCM loudness; absent for float or compressed payloads
type LevelsReport struct {
	Peak     float64 `json:"peak"`
	RMS      float64 `json:"rms"`
	PeakDBFS float64 `json:"peak_dbfs"`
}

func newInspectCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Decode a WAVE file and report its layout",
		Long: `Decode a RIFF/WAVE file and report its container header, format record,
data size, every chunk seen and any anomalies, plus PCM peak and RMS levels.

Output is a table on a terminal and key=value lines otherwise.

Examples:
  riffle inspect take1.wav
  riffle inspect --json take1.wav
  riffle --last-wins inspect damaged.wav`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func runInspect(cmd *cobra.Command, path string, asJSON bool) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return fmt.Errorf("CLI instance not found in context")
	}

	source := cli.fsFactory.ReadOnly(cli.fs)
	doc, err := riff.DecodeFile(source, path, cli.cfg.DecodeOptions()...)
	cli.record(cmd.Context(), tracking.NewEvent(path, tracking.OpInspect, doc, err))
	if err != nil {
		return fmt.Errorf("inspect %s: %w", path, err)
	}

	report := BuildInspectReport(path, doc)
	out := cmd.OutOrStdout()

	switch {
	case asJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case cli.isInteractiveTerminal(out):
		return writeInspectTable(out, report)
	default:
		writeInspectPlain(out, report)
		return nil
	}
}

// BuildInspectReport converts a decoded document into a report
func BuildInspectReport(path string, doc *riff.Document) *InspectReport {
	report := &InspectReport{
		Path: path,
		Container: ContainerReport{
			Tag:  riff.TagString(doc.Container.ID),
			Size: doc.Container.Size,
			Form: riff.TagString(doc.Container.Form),
		},
		Format: FormatReport{
			AudioFormat:   doc.Format.AudioFormat,
			Name:          doc.Format.FormatName(),
			Channels:      doc.Format.NumChannels,
			SampleRate:    doc.Format.SampleRate,
			ByteRate:      doc.Format.ByteRate,
			BlockAlign:    doc.Format.BlockAlign,
			BitsPerSample: doc.Format.BitsPerSample,
		},
		Data: DataReport{
			Bytes:      doc.Data.Len(),
			DurationMS: float64(doc.Duration().Microseconds()) / 1000,
		},
		Chunks: make([]ChunkReport, 0, len(doc.Chunks)),
	}

	for _, chunk := range doc.Chunks {
		report.Chunks = append(report.Chunks, ChunkReport{
			Tag:     riff.TagString(chunk.Header.ID),
			Offset:  chunk.Offset,
			Size:    chunk.Header.Size,
			Skipped: chunk.Skipped,
		})
	}
	for _, a := range doc.Anomalies {
		report.Anomalies = append(report.Anomalies, AnomalyReport{
			Kind:   a.Kind,
			Tag:    riff.TagString(a.Tag),
			Offset: a.Offset,
			Detail: a.Detail,
		})
	}

	report.Levels = measure(doc)
	return report
}

func measure(doc *riff.Document) *LevelsReport {
	data, err := audio.DocumentToAudioData(doc)
	if err != nil {
		slog.Debug("no sample view for levels", "error", err)
		return nil
	}
	buf, err := data.IntBuffer()
	if err != nil {
		slog.Debug("no integer view for levels", "format", data.Format.String())
		return nil
	}
	levels := audio.MeasureLevels(buf)
	report := &LevelsReport{Peak: levels.Peak, RMS: levels.RMS, PeakDBFS: levels.PeakDBFS()}
	// JSON has no -Inf
	if math.IsInf(report.PeakDBFS, -1) {
		report.PeakDBFS = -999
	}
	return report
}

func writeInspectPlain(w io.Writer, r *InspectReport) {
	fmt.Fprintf(w, "path=%s\n", r.Path)
	fmt.Fprintf(w, "container.tag=%s\n", r.Container.Tag)
	fmt.Fprintf(w, "container.size=%d\n", r.Container.Size)
	fmt.Fprintf(w, "container.form=%s\n", r.Container.Form)
	fmt.Fprintf(w, "format.audio_format=%d\n", r.Format.AudioFormat)
	fmt.Fprintf(w, "format.name=%s\n", r.Format.Name)
	fmt.Fprintf(w, "format.channels=%d\n", r.Format.Channels)
	fmt.Fprintf(w, "format.sample_rate=%d\n", r.Format.SampleRate)
	fmt.Fprintf(w, "format.byte_rate=%d\n", r.Format.ByteRate)
	fmt.Fprintf(w, "format.block_align=%d\n", r.Format.BlockAlign)
	fmt.Fprintf(w, "format.bits_per_sample=%d\n", r.Format.BitsPerSample)
	fmt.Fprintf(w, "data.bytes=%d\n", r.Data.Bytes)
	fmt.Fprintf(w, "data.duration_ms=%.3f\n", r.Data.DurationMS)
	for i, c := range r.Chunks {
		fmt.Fprintf(w, "chunk.%d=%s offset=%d size=%d skipped=%t\n", i, c.Tag, c.Offset, c.Size, c.Skipped)
	}
	for i, a := range r.Anomalies {
		fmt.Fprintf(w, "anomaly.%d=%s tag=%s offset=%d detail=%q\n", i, a.Kind, a.Tag, a.Offset, a.Detail)
	}
	if r.Levels != nil {
		fmt.Fprintf(w, "levels.peak=%.4f\n", r.Levels.Peak)
		fmt.Fprintf(w, "levels.rms=%.4f\n", r.Levels.RMS)
		fmt.Fprintf(w, "levels.peak_dbfs=%.2f\n", r.Levels.PeakDBFS)
	}
}

func writeInspectTable(w io.Writer, r *InspectReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "File\t%s\n", r.Path)
	fmt.Fprintf(tw, "Container\t%s %s, %d bytes declared\n", r.Container.Tag, r.Container.Form, r.Container.Size)
	fmt.Fprintf(tw, "Format\t%s (0x%04x), %d ch, %d Hz, %d bit\n",
		r.Format.Name, r.Format.AudioFormat, r.Format.Channels, r.Format.SampleRate, r.Format.BitsPerSample)
	fmt.Fprintf(tw, "Byte rate\t%d B/s, block align %d\n", r.Format.ByteRate, r.Format.BlockAlign)
	fmt.Fprintf(tw, "Data\t%d bytes, %.3f s\n", r.Data.Bytes, r.Data.DurationMS/1000)
	if r.Levels != nil {
		fmt.Fprintf(tw, "Levels\tpeak %.4f (%.2f dBFS), rms %.4f\n", r.Levels.Peak, r.Levels.PeakDBFS, r.Levels.RMS)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "TAG\tOFFSET\tSIZE\tSTATUS")
	for _, c := range r.Chunks {
		status := "decoded"
		if c.Skipped {
			status = "skipped"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", c.Tag, c.Offset, c.Size, status)
	}

	if len(r.Anomalies) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ANOMALY\tTAG\tOFFSET\tDETAIL")
		for _, a := range r.Anomalies {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.Kind, a.Tag, a.Offset, a.Detail)
		}
	}

	return tw.Flush()
}
