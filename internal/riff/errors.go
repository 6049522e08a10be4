package riff

import (
	"errors"
	"fmt"
)

// Decode failure kinds. Every error returned by this package wraps exactly one of these.
var (
	ErrSourceUnavailable    = errors.New("source unavailable")
	ErrNotARiffContainer    = errors.New("not a RIFF container")
	ErrNotWaveForm          = errors.New("not a WAVE form")
	ErrTruncatedHeader      = errors.New("truncated chunk header")
	ErrTruncatedChunk       = errors.New("truncated chunk")
	ErrMalformedFormatChunk = errors.New("malformed fmt chunk")
	ErrIncompleteDocument   = errors.New("incomplete document")
)

// DecodeError carries enough context to diagnose a malformed file.
type DecodeError struct {
	Kind      error   // one of the Err* sentinels
	Tag       [4]byte // chunk tag involved, zero if none
	Offset    int64   // byte offset where the problem was found
	Declared  int64   // declared length, -1 if not applicable
	Available int64   // bytes actually available, -1 if not applicable
	Err       error   // underlying cause, may be nil
}

func (e *DecodeError) Error() string {
	msg := e.Kind.Error()
	if e.Tag != ([4]byte{}) {
		msg += fmt.Sprintf(" [%s]", TagString(e.Tag))
	}
	msg += fmt.Sprintf(" at offset %d", e.Offset)
	if e.Declared >= 0 {
		msg += fmt.Sprintf(": declared %d bytes, %d available", e.Declared, e.Available)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, tag [4]byte, offset int64) *DecodeError {
	return &DecodeError{Kind: kind, Tag: tag, Offset: offset, Declared: -1, Available: -1}
}

func lengthError(kind error, tag [4]byte, offset int64, declared, available int64) *DecodeError {
	return &DecodeError{Kind: kind, Tag: tag, Offset: offset, Declared: declared, Available: available}
}

// KindName returns a short stable name for the error kind: "" for nil, "other" for unrelated errors.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrNotARiffContainer):
		return "not_riff"
	case errors.Is(err, ErrNotWaveForm):
		return "not_wave"
	case errors.Is(err, ErrTruncatedHeader):
		return "truncated_header"
	case errors.Is(err, ErrTruncatedChunk):
		return "truncated_chunk"
	case errors.Is(err, ErrMalformedFormatChunk):
		return "malformed_fmt"
	case errors.Is(err, ErrIncompleteDocument):
		return "incomplete_document"
	default:
		return "other"
	}
}

// TagString renders a chunk tag, escaping non-printable bytes.
func TagString(tag [4]byte) string {
	out := make([]byte, 0, 4)
	for _, b := range tag {
		if b < 0x20 || b > 0x7e {
			return fmt.Sprintf("%q", string(tag[:]))
		}
		out = append(out, b)
	}
	return string(out)
}
