package converter

import "fmt"

const (
	ReasonUnsupportedContainer = "unsupported container"
	ReasonNoAudioStream        = "source has no audio stream"
	ReasonProbeFailed          = "probe failed"
	ReasonToolFailure          = "ffmpeg failed"
	ReasonEmptyOutput          = "audio output is empty"
)

// ConversionError reports why an asset could not be turned into audio.
type ConversionError struct {
	Reason string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conversion: %s: %v", e.Reason, e.Err)
	}
	return "conversion: " + e.Reason
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
