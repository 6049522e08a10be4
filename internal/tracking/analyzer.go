package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// FailureCount is the number of failed events of one error kind
type FailureCount struct {
	ErrorKind string   `json:"error_kind"`
	Count     int      `json:"count"`
	Paths     []string `json:"paths,omitempty"` // up to maxSamplePaths distinct paths
}

// AnomalyCount is the number of recorded anomalies of one kind and tag
type AnomalyCount struct {
	Kind  string `json:"kind"`
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Summary aggregates the events selected by a filter
type Summary struct {
	TotalEvents int            `json:"total_events"`
	Failed      int            `json:"failed"`
	UniquePaths int            `json:"unique_paths"`
	Failures    []FailureCount `json:"failures,omitempty"`
	Anomalies   []AnomalyCount `json:"anomalies,omitempty"`
}

const maxSamplePaths = 3

// Summarize computes totals, failures by kind and anomaly counts for events matching filter
func Summarize(ctx context.Context, db *sql.DB, filter QueryFilter) (*Summary, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	whereClause, args := filter.BuildWhereClause(time.Now())
	where := ""
	if whereClause != "" {
		where = " WHERE " + whereClause
	}

	summary := &Summary{}
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'error' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT path)
		FROM decode_events`+where, args...).
		Scan(&summary.TotalEvents, &summary.Failed, &summary.UniquePaths)
	if err != nil {
		return nil, fmt.Errorf("failed to query event totals: %w", err)
	}

	failures, err := failureCounts(ctx, db, where, args)
	if err != nil {
		return nil, err
	}
	summary.Failures = failures

	anomalies, err := anomalyCounts(ctx, db, where, args)
	if err != nil {
		return nil, err
	}
	summary.Anomalies = anomalies

	return summary, nil
}

func failureCounts(ctx context.Context, db *sql.DB, where string, args []any) ([]FailureCount, error) {
	cond := " WHERE outcome = 'error'"
	if where != "" {
		cond = where + " AND outcome = 'error'"
	}

	rows, err := db.QueryContext(ctx, `
		SELECT COALESCE(error_kind, 'other'), COUNT(*), GROUP_CONCAT(DISTINCT path)
		FROM decode_events`+cond+`
		GROUP BY error_kind
		ORDER BY COUNT(*) DESC, error_kind`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var out []FailureCount
	for rows.Next() {
		var fc FailureCount
		var paths sql.NullString
		if err := rows.Scan(&fc.ErrorKind, &fc.Count, &paths); err != nil {
			return nil, fmt.Errorf("failed to scan failure row: %w", err)
		}
		fc.Paths = samplePaths(paths.String)
		out = append(out, fc)
	}
	return out, rows.Err()
}

func anomalyCounts(ctx context.Context, db *sql.DB, where string, args []any) ([]AnomalyCount, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT a.kind, a.tag, COUNT(*)
		FROM event_anomalies a
		JOIN (SELECT id FROM decode_events`+where+`) e ON a.event_id = e.id
		GROUP BY a.kind, a.tag
		ORDER BY COUNT(*) DESC, a.kind, a.tag`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var out []AnomalyCount
	for rows.Next() {
		var ac AnomalyCount
		if err := rows.Scan(&ac.Kind, &ac.Tag, &ac.Count); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly row: %w", err)
		}
		out = append(out, ac)
	}
	return out, rows.Err()
}

// samplePaths splits a GROUP_CONCAT result and keeps the first few entries
func samplePaths(concat string) []string {
	if concat == "" {
		return nil
	}
	paths := strings.Split(concat, ",")
	return paths[:min(len(paths), maxSamplePaths)]
}
