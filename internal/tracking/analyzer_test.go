package tracking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	db := setupTestDB(t)
	recorder := NewRecorder(db)
	ctx := context.Background()

	pad := AnomalyRecord{Kind: "missing_pad", Tag: "data", Offset: 45}
	dup := AnomalyRecord{Kind: "duplicate_chunk", Tag: "fmt ", Offset: 60}
	seed := []Event{
		{Path: "a.wav", Operation: OpInspect, Outcome: OutcomeOK, Anomalies: []AnomalyRecord{pad, dup}},
		{Path: "a.wav", Operation: OpPlay, Outcome: OutcomeOK, Anomalies: []AnomalyRecord{pad}},
		{Path: "b.wav", Operation: OpInspect, Outcome: OutcomeError, ErrorKind: "truncated_chunk"},
		{Path: "c.wav", Operation: OpInspect, Outcome: OutcomeError, ErrorKind: "truncated_chunk"},
		{Path: "d.wav", Operation: OpPlay, Outcome: OutcomeError, ErrorKind: "not_riff"},
	}
	for _, e := range seed {
		_, err := recorder.Record(ctx, e)
		require.NoError(t, err)
	}

	summary, err := Summarize(ctx, db, QueryFilter{})
	require.NoError(t, err)

	assert.Equal(t, 5, summary.TotalEvents)
	assert.Equal(t, 3, summary.Failed)
	assert.Equal(t, 4, summary.UniquePaths)

	require.Len(t, summary.Failures, 2)
	assert.Equal(t, "truncated_chunk", summary.Failures[0].ErrorKind)
	assert.Equal(t, 2, summary.Failures[0].Count)
	assert.ElementsMatch(t, []string{"b.wav", "c.wav"}, summary.Failures[0].Paths)
	assert.Equal(t, FailureCount{ErrorKind: "not_riff", Count: 1, Paths: []string{"d.wav"}}, summary.Failures[1])

	assert.Equal(t, []AnomalyCount{
		{Kind: "missing_pad", Tag: "data", Count: 2},
		{Kind: "duplicate_chunk", Tag: "fmt ", Count: 1},
	}, summary.Anomalies)

	inspectOnly, err := Summarize(ctx, db, QueryFilter{Operation: OpInspect})
	require.NoError(t, err)
	assert.Equal(t, 3, inspectOnly.TotalEvents)
	assert.Equal(t, 2, inspectOnly.Failed)
	assert.Len(t, inspectOnly.Failures, 1)
	assert.Len(t, inspectOnly.Anomalies, 2)
}

func TestSummarizeEmpty(t *testing.T) {
	summary, err := Summarize(context.Background(), setupTestDB(t), QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, &Summary{}, summary)

	_, err = Summarize(context.Background(), nil, QueryFilter{})
	assert.ErrorIs(t, err, ErrNilDatabase)
}

func TestSamplePaths(t *testing.T) {
	assert.Nil(t, samplePaths(""))
	assert.Equal(t, []string{"a", "b"}, samplePaths("a,b"))
	assert.Len(t, samplePaths("a,b,c,d,e"), maxSamplePaths)
}
