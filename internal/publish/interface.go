package publish

import (
	"context"
	"errors"
)

var ErrVideoNotFound = errors.New("youtube video not found")

// Publisher pushes generated text to an existing YouTube video.
type Publisher interface {
	// UpdateDescription replaces the description of videoID and returns the watch URL.
	UpdateDescription(ctx context.Context, videoID, description string) (string, error)
}
