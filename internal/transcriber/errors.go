package transcriber

import (
	"errors"
	"fmt"
)

const (
	ReasonService     = "speech-to-text request failed"
	ReasonEmptyResult = "empty transcription result"
	ReasonBadResponse = "malformed transcription response"
	ReasonUnsupported = "unsupported view"
)

// TranscriptionError reports a failed or empty speech-to-text call.
type TranscriptionError struct {
	Reason string
	Err    error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription: %s: %v", e.Reason, e.Err)
	}
	return "transcription: " + e.Reason
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

func wrapErr(reason string, err error) error {
	var te *TranscriptionError
	if errors.As(err, &te) {
		return err
	}
	return &TranscriptionError{Reason: reason, Err: err}
}
