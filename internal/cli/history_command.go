package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"riffle.click/internal/tracking"
)

// ErrHistoryDisabled is returned by history commands when no database is open
var ErrHistoryDisabled = errors.New("history is not enabled (set history.enabled in the config or RIFFLE_HISTORY=true)")

type historyFlags struct {
	days      int
	preset    string
	since     string
	operation string
	failed    bool
	kind      string
	path      string
	limit     int
	asJSON    bool
}

func (f *historyFlags) register(cmd *cobra.Command, defaultLimit int) {
	flags := cmd.Flags()
	flags.IntVar(&f.days, "days", 7, "Number of days to include (0 = all time)")
	flags.StringVar(&f.preset, "preset", "", "Date preset (today, yesterday, week, last-week, month, last-month, all)")
	flags.StringVar(&f.since, "since", "", `Natural language start time, e.g. "3 hours ago"`)
	flags.StringVar(&f.operation, "op", "", "Filter by operation (inspect, reencode, play, tone)")
	flags.BoolVar(&f.failed, "failed", false, "Only failed operations")
	flags.StringVar(&f.kind, "kind", "", "Filter by error kind, e.g. truncated_chunk")
	flags.StringVar(&f.path, "path", "", "Filter by path substring")
	flags.IntVar(&f.limit, "limit", defaultLimit, "Maximum number of results (0 = no limit)")
	flags.BoolVar(&f.asJSON, "json", false, "Output JSON")
}

func (f *historyFlags) filter() (tracking.QueryFilter, error) {
	if f.since != "" {
		// ApplyTimeFilter drops unparseable bounds; surface them here
		if _, err := tracking.ParseNaturalDate(f.since, time.Now()); err != nil {
			return tracking.QueryFilter{}, err
		}
	}
	if f.preset != "" {
		if _, _, err := tracking.ParseDatePreset(f.preset, time.Now()); err != nil {
			return tracking.QueryFilter{}, err
		}
	}

	filter := tracking.QueryFilter{
		Days:         f.days,
		DatePreset:   f.preset,
		Since:        f.since,
		Operation:    f.operation,
		ErrorKind:    f.kind,
		PathContains: f.path,
		Limit:        f.limit,
	}
	if f.failed || f.kind != "" {
		filter.Outcome = tracking.OutcomeError
	}
	return filter, nil
}

func timeContext(filter tracking.QueryFilter) string {
	switch {
	case filter.DatePreset != "":
		return filter.DatePreset
	case filter.Since != "":
		return "since " + filter.Since
	case filter.Days > 0:
		return fmt.Sprintf("last %d days", filter.Days)
	default:
		return "all time"
	}
}

// newHistoryCommand creates the history command with its subcommands
func newHistoryCommand() *cobra.Command {
	var flags historyFlags

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded decode, re-encode and playback operations",
		Long: `Show operations recorded in the history database, newest first.

History is off by default. Enable it with "history": {"enabled": true} in the
config file or RIFFLE_HISTORY=true.

Examples:
  riffle history                       # last 7 days
  riffle history --preset today
  riffle history --since "2 hours ago" --failed
  riffle history --op inspect --kind truncated_chunk
  riffle history summary --days 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, &flags)
		},
	}
	flags.register(historyCmd, 20)

	historyCmd.AddCommand(newHistorySummaryCommand())
	return historyCmd
}

func newHistorySummaryCommand() *cobra.Command {
	var flags historyFlags

	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize failures and anomalies",
		Long: `Count recorded operations, failures by error kind and anomalies by kind and chunk tag.

Examples:
  riffle history summary
  riffle history summary --preset last-week --op play`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistorySummary(cmd, &flags)
		},
	}
	flags.register(summaryCmd, 0)
	return summaryCmd
}

func historyCLI(cmd *cobra.Command) (*CLI, error) {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return nil, fmt.Errorf("CLI instance not found in context")
	}
	if cli.historyDB == nil {
		return nil, ErrHistoryDisabled
	}
	return cli, nil
}

func runHistoryList(cmd *cobra.Command, flags *historyFlags) error {
	cli, err := historyCLI(cmd)
	if err != nil {
		return err
	}
	filter, err := flags.filter()
	if err != nil {
		return err
	}

	events, err := tracking.Recent(cmd.Context(), cli.historyDB, filter)
	if err != nil {
		slog.Error("failed to load history", "error", err)
		return fmt.Errorf("failed to load history: %w", err)
	}

	out := cmd.OutOrStdout()
	if flags.asJSON {
		if events == nil {
			events = []tracking.Event{}
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(events)
	}

	return outputEvents(out, events, filter)
}

func outputEvents(w io.Writer, events []tracking.Event, filter tracking.QueryFilter) error {
	if len(events) == 0 {
		fmt.Fprintf(w, "No operations recorded (%s).\n", timeContext(filter))
		return nil
	}

	fmt.Fprintf(w, "Operations (%s, %d shown):\n\n", timeContext(filter), len(events))
	for _, e := range events {
		fmt.Fprintf(w, "%s  %-8s %-5s %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Operation, e.Outcome, e.Path)
		if e.Outcome == tracking.OutcomeError {
			fmt.Fprintf(w, "    %s: %s\n", e.ErrorKind, e.ErrorMessage)
		} else if e.SampleRate > 0 {
			fmt.Fprintf(w, "    %d Hz, %d ch, %d bit, %d data bytes, %d chunks\n",
				e.SampleRate, e.Channels, e.BitsPerSample, e.DataBytes, e.ChunkCount)
		}
		for _, a := range e.Anomalies {
			fmt.Fprintf(w, "    ! %s [%s] at %d: %s\n", a.Kind, a.Tag, a.Offset, a.Detail)
		}
	}
	return nil
}

func runHistorySummary(cmd *cobra.Command, flags *historyFlags) error {
	cli, err := historyCLI(cmd)
	if err != nil {
		return err
	}
	filter, err := flags.filter()
	if err != nil {
		return err
	}

	summary, err := tracking.Summarize(cmd.Context(), cli.historyDB, filter)
	if err != nil {
		slog.Error("failed to summarize history", "error", err)
		return fmt.Errorf("failed to summarize history: %w", err)
	}

	out := cmd.OutOrStdout()
	if flags.asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	return outputSummary(out, summary, filter)
}

func outputSummary(w io.Writer, s *tracking.Summary, filter tracking.QueryFilter) error {
	fmt.Fprintf(w, "History summary (%s):\n\n", timeContext(filter))
	fmt.Fprintf(w, "  Operations:   %d\n", s.TotalEvents)
	fmt.Fprintf(w, "  Failed:       %d\n", s.Failed)
	fmt.Fprintf(w, "  Unique files: %d\n", s.UniquePaths)

	if len(s.Failures) > 0 {
		fmt.Fprintln(w, "\nFailures by kind:")
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  %-22s %4d", f.ErrorKind, f.Count)
			if len(f.Paths) > 0 {
				fmt.Fprintf(w, "  e.g. %s", strings.Join(f.Paths, ", "))
			}
			fmt.Fprintln(w)
		}
	}

	if len(s.Anomalies) > 0 {
		fmt.Fprintln(w, "\nAnomalies:")
		for _, a := range s.Anomalies {
			fmt.Fprintf(w, "  %-16s %-6s %4d\n", a.Kind, a.Tag, a.Count)
		}
	}
	return nil
}
