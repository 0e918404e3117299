package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrSessionClosed   = errors.New("session is closed")
	ErrSessionNotFound = errors.New("session not found")
	ErrNoAsset         = errors.New("no asset bound to slot")
	ErrNotConverted    = errors.New("slot has no converted audio")
	ErrNotTranscribed  = errors.New("slot has no plain transcript")
	ErrNotGenerated    = errors.New("stage output has not been generated")
	ErrWrongSlot       = errors.New("stage does not apply to this slot")
	ErrAssetReplaced   = errors.New("asset was replaced while the stage was running")
)

// StageError wraps a failure of one stage for one slot.
type StageError struct {
	Key string
	Err error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsPrecondition reports whether err means a predecessor stage has not run yet
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoAsset) ||
		errors.Is(err, ErrNotConverted) ||
		errors.Is(err, ErrNotTranscribed) ||
		errors.Is(err, ErrNotGenerated) ||
		errors.Is(err, ErrWrongSlot)
}
