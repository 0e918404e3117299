package derive

import "fmt"

const (
	ReasonService   = "text generation request failed"
	ReasonEmpty     = "empty completion"
	ReasonMalformed = "malformed completion"
)

// GenerationError reports a failed, empty or unusable completion.
type GenerationError struct {
	Kind   string
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generate %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("generate %s: %s", e.Kind, e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
