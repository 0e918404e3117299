package transcriber

import (
	"context"

	"github.com/nguyentantai21042004/audio-reader/internal/models"
)

// Transcriber turns an audio track into one of the three transcript views.
// Every call hits the speech-to-text backend; caching is the caller's job.
type Transcriber interface {
	Plain(ctx context.Context, track models.AudioTrack) (models.Transcript, error)
	Timestamped(ctx context.Context, track models.AudioTrack) (models.Transcript, error)
	Subtitle(ctx context.Context, track models.AudioTrack) (models.Transcript, error)
	Transcribe(ctx context.Context, track models.AudioTrack, view models.View) (models.Transcript, error)
}

// Backend is a speech-to-text engine able to return each response shape.
type Backend interface {
	Name() string
	Text(ctx context.Context, track models.AudioTrack) (string, error)
	Segments(ctx context.Context, track models.AudioTrack) ([]models.Segment, error)
	SRT(ctx context.Context, track models.AudioTrack) (string, error)
}
