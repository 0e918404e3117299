package derive

import (
	"context"

	"github.com/nguyentantai21042004/audio-reader/internal/models"
)

// Deriver runs the text-generation stages. Each call is exactly one request.
type Deriver interface {
	Summary(ctx context.Context, transcript string) (models.DerivedText, error)
	Topics(ctx context.Context, transcript string) (models.DerivedText, error)
	ClipDescription(ctx context.Context, transcript string) (models.DerivedText, error)
	// YouTubeDescription sends body as is, even when it is empty.
	YouTubeDescription(ctx context.Context, body string) (models.DerivedText, error)
}
