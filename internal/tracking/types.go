package tracking

import (
	"time"

	"riffle.click/internal/riff"
)

// Operations recorded in the history
const (
	OpInspect  = "inspect"
	OpReencode = "reencode"
	OpPlay     = "play"
	OpTone     = "tone"
)

// Outcomes
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// AnomalyRecord is a stored riff.Anomaly
type AnomalyRecord struct {
	Kind   string `json:"kind"`
	Tag    string `json:"tag"`
	Offset int64  `json:"offset"`
	Detail string `json:"detail,omitempty"`
}

// Event is one decode, encode or playback attempt
type Event struct {
	ID            int64           `json:"id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Path          string          `json:"path"`
	Operation     string          `json:"operation"`
	Outcome       string          `json:"outcome"`
	ErrorKind     string          `json:"error_kind,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	SampleRate    uint32          `json:"sample_rate,omitempty"`
	Channels      uint16          `json:"channels,omitempty"`
	BitsPerSample uint16          `json:"bits_per_sample,omitempty"`
	DataBytes     int             `json:"data_bytes,omitempty"`
	ChunkCount    int             `json:"chunk_count,omitempty"`
	Anomalies     []AnomalyRecord `json:"anomalies,omitempty"`
}

// NewEvent builds an event from the result of an operation on path.
// doc may be nil; err decides the outcome.
func NewEvent(path, operation string, doc *riff.Document, err error) Event {
	event := Event{
		Timestamp: time.Now(),
		Path:      path,
		Operation: operation,
		Outcome:   OutcomeOK,
	}

	if err != nil {
		event.Outcome = OutcomeError
		event.ErrorKind = riff.KindName(err)
		event.ErrorMessage = err.Error()
	}

	if doc != nil {
		event.SampleRate = doc.Format.SampleRate
		event.Channels = doc.Format.NumChannels
		event.BitsPerSample = doc.Format.BitsPerSample
		event.DataBytes = doc.Data.Len()
		event.ChunkCount = len(doc.Chunks)
		for _, a := range doc.Anomalies {
			event.Anomalies = append(event.Anomalies, AnomalyRecord{
				Kind:   a.Kind,
				Tag:    riff.TagString(a.Tag),
				Offset: a.Offset,
				Detail: a.Detail,
			})
		}
	}

	return event
}
