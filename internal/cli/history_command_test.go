package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riffle.click/internal/tracking"
)

func enableHistory(t *testing.T, h *harness) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	h.writeConfig(t, fmt.Sprintf(`{"history": {"enabled": true, "path": %q}}`, dbPath))
}

func TestHistoryDisabledByDefault(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("history")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, ErrHistoryDisabled.Error())
}

func TestHistoryRecordsOperations(t *testing.T) {
	h := newHarness(t)
	enableHistory(t, h)
	h.writeFile(t, "/audio/a.wav", listWAV())
	h.writeFile(t, "/audio/dup.wav", buildWAV(
		fmtChunk(mono16),
		fmtChunk(mono16),
		chunk{tag: "data", payload: halfScalePCM()},
	))

	code, _, _ := h.run("inspect", "/audio/a.wav")
	require.Equal(t, 0, code)
	code, _, _ = h.run("inspect", "/audio/missing.wav")
	require.Equal(t, 1, code)
	code, _, _ = h.run("reencode", "/audio/dup.wav", "/audio/clean.wav")
	require.Equal(t, 0, code)

	code, stdout, stderr := h.run("history", "--json")
	require.Equal(t, 0, code, stderr)

	var events []tracking.Event
	require.NoError(t, json.Unmarshal([]byte(stdout), &events))
	require.Len(t, events, 3)

	reencode, failed, inspect := events[0], events[1], events[2]

	assert.Equal(t, tracking.OpReencode, reencode.Operation)
	assert.Equal(t, tracking.OutcomeOK, reencode.Outcome)
	require.Len(t, reencode.Anomalies, 1)
	assert.Equal(t, "duplicate_chunk", reencode.Anomalies[0].Kind)
	assert.Equal(t, "fmt ", reencode.Anomalies[0].Tag)

	assert.Equal(t, tracking.OpInspect, failed.Operation)
	assert.Equal(t, tracking.OutcomeError, failed.Outcome)
	assert.Equal(t, "source_unavailable", failed.ErrorKind)
	assert.Equal(t, "/audio/missing.wav", failed.Path)

	assert.Equal(t, "/audio/a.wav", inspect.Path)
	assert.Equal(t, uint32(8000), inspect.SampleRate)
	assert.Equal(t, 3, inspect.ChunkCount)
	assert.Equal(t, 8, inspect.DataBytes)
}

func TestHistoryFilters(t *testing.T) {
	h := newHarness(t)
	enableHistory(t, h)
	h.writeFile(t, "/audio/a.wav", listWAV())

	for i := 0; i < 3; i++ {
		h.run("inspect", "/audio/a.wav")
	}
	h.run("inspect", "/audio/gone.wav")
	h.run("tone", "--duration", "10ms", "/audio/t.wav")

	count := func(args ...string) int {
		t.Helper()
		code, stdout, stderr := h.run(append([]string{"history", "--json"}, args...)...)
		require.Equal(t, 0, code, stderr)
		var events []tracking.Event
		require.NoError(t, json.Unmarshal([]byte(stdout), &events))
		return len(events)
	}

	assert.Equal(t, 5, count())
	assert.Equal(t, 1, count("--failed"))
	assert.Equal(t, 1, count("--kind", "source_unavailable"))
	assert.Equal(t, 0, count("--kind", "truncated_chunk"))
	assert.Equal(t, 1, count("--op", "tone"))
	assert.Equal(t, 2, count("--limit", "2"))
	assert.Equal(t, 1, count("--path", "gone"))
	assert.Equal(t, 5, count("--preset", "today"))
	assert.Equal(t, 5, count("--since", "1 hour ago"))
}

func TestHistoryPlainOutput(t *testing.T) {
	h := newHarness(t)
	enableHistory(t, h)

	code, stdout, _ := h.run("history")
	require.Equal(t, 0, code)
	assert.Equal(t, "No operations recorded (last 7 days).\n", stdout)

	h.run("inspect", "/audio/gone.wav")
	code, stdout, _ = h.run("history", "--preset", "today")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Operations (today, 1 shown):")
	assert.Contains(t, stdout, "inspect  error /audio/gone.wav")
	assert.Contains(t, stdout, "source_unavailable: ")
}

func TestHistorySummary(t *testing.T) {
	h := newHarness(t)
	enableHistory(t, h)
	h.writeFile(t, "/audio/a.wav", listWAV())
	h.writeFile(t, "/audio/bad.wav", []byte("RIFF\x04\x00\x00\x00AVI "))

	h.run("inspect", "/audio/a.wav")
	h.run("inspect", "/audio/bad.wav")
	h.run("inspect", "/audio/bad.wav")

	code, stdout, stderr := h.run("history", "summary", "--json")
	require.Equal(t, 0, code, stderr)

	var summary tracking.Summary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, 3, summary.TotalEvents)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, summary.UniquePaths)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "not_wave", summary.Failures[0].ErrorKind)
	assert.Equal(t, 2, summary.Failures[0].Count)
	assert.Equal(t, []string{"/audio/bad.wav"}, summary.Failures[0].Paths)

	code, stdout, _ = h.run("history", "summary")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Failed:       2")
	assert.Contains(t, stdout, "not_wave")
}

func TestHistoryRejectsBadTimeFilters(t *testing.T) {
	h := newHarness(t)
	enableHistory(t, h)

	code, _, stderr := h.run("history", "--preset", "fortnight")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown preset")
}
