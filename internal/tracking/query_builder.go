package tracking

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

// QueryFilter selects history events
type QueryFilter struct {
	// Time filters; DatePreset wins over Since, which wins over Days
	Days       int    // last N days
	DatePreset string // "today", "yesterday", "week", "last-week", "month", "last-month", "all"
	Since      string // natural language, e.g. "3 hours ago"

	Operation    string // inspect, reencode, play, tone
	Outcome      string // ok, error
	ErrorKind    string // riff.KindName value
	PathContains string

	Limit int // 0 = no limit
}

// ApplyTimeFilter converts the time options to a Unix range; start 0 means no lower bound
func (q *QueryFilter) ApplyTimeFilter(now time.Time) (startUnix, endUnix int64) {
	endUnix = now.Unix()

	if q.DatePreset != "" {
		start, end, err := ParseDatePreset(q.DatePreset, now)
		if err != nil {
			slog.Warn("invalid date preset, using no time filter", "preset", q.DatePreset, "error", err)
			return 0, endUnix
		}
		return start.Unix(), end.Unix()
	}

	if q.Since != "" {
		start, err := ParseNaturalDate(q.Since, now)
		if err != nil {
			return 0, endUnix
		}
		return start.Unix(), endUnix
	}

	if q.Days > 0 {
		return now.AddDate(0, 0, -q.Days).Unix(), endUnix
	}

	return 0, endUnix
}

// BuildWhereClause constructs the SQL WHERE clause (without the keyword) and its arguments
func (q *QueryFilter) BuildWhereClause(now time.Time) (string, []any) {
	var clauses []string
	var args []any

	if q.Days > 0 || q.DatePreset != "" || q.Since != "" {
		startUnix, endUnix := q.ApplyTimeFilter(now)
		if startUnix > 0 {
			clauses = append(clauses, "timestamp >= ?")
			args = append(args, startUnix)
		}
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, endUnix)
	}

	if q.Operation != "" {
		clauses = append(clauses, "operation = ?")
		args = append(args, q.Operation)
	}
	if q.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, q.Outcome)
	}
	if q.ErrorKind != "" {
		clauses = append(clauses, "error_kind = ?")
		args = append(args, q.ErrorKind)
	}
	if q.PathContains != "" {
		clauses = append(clauses, "instr(path, ?) > 0")
		args = append(args, q.PathContains)
	}

	whereClause := strings.Join(clauses, " AND ")
	slog.Debug("built where clause", "clause", whereClause, "arg_count", len(args))
	return whereClause, args
}

// ParseDatePreset converts a preset name to a time range
func ParseDatePreset(preset string, now time.Time) (start, end time.Time, err error) {
	switch preset {
	case "today":
		start, end = beginningOfDay(now), now
	case "yesterday":
		start, end = beginningOfDay(now.AddDate(0, 0, -1)), beginningOfDay(now)
	case "week", "this-week":
		start, end = beginningOfWeek(now), now
	case "last-week":
		start, end = beginningOfWeek(now).AddDate(0, 0, -7), beginningOfWeek(now)
	case "month", "this-month":
		start, end = beginningOfMonth(now), now
	case "last-month":
		start, end = beginningOfMonth(now).AddDate(0, -1, 0), beginningOfMonth(now)
	case "all", "all-time":
		start, end = time.Time{}, now
	default:
		err = fmt.Errorf("unknown preset: %s", preset)
		slog.Error("invalid date preset", "preset", preset)
		return
	}

	slog.Debug("parsed date preset", "preset", preset, "start", start, "end", end)
	return
}

// ParseNaturalDate parses expressions such as "2 days ago" relative to now
func ParseNaturalDate(naturalDate string, now time.Time) (time.Time, error) {
	result, err := naturaldate.Parse(naturalDate, now, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		slog.Warn("failed to parse natural language date", "input", naturalDate, "error", err)
		return time.Time{}, fmt.Errorf("failed to parse natural date '%s': %w", naturalDate, err)
	}

	slog.Debug("parsed natural language date", "input", naturalDate, "result", result)
	return result, nil
}

func beginningOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// beginningOfWeek returns Monday 00:00 of t's week
func beginningOfWeek(t time.Time) time.Time {
	weekday := t.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	return beginningOfDay(t.AddDate(0, 0, -int(weekday-1)))
}

func beginningOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
