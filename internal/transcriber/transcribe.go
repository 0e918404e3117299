package transcriber

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nguyentantai21042004/audio-reader/internal/models"
)

// Plain returns the whole transcript as one string
func (t *implTranscriber) Plain(ctx context.Context, track models.AudioTrack) (models.Transcript, error) {
	t.logger.Info(ctx, "Transcribing %s (plain, %s)", track.Path, t.backend.Name())

	text, err := t.backend.Text(ctx, track)
	if err != nil {
		return models.Transcript{}, wrapErr(ReasonService, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Transcript{}, &TranscriptionError{Reason: ReasonEmptyResult}
	}

	return models.Transcript{View: models.ViewPlain, Text: text}, nil
}

// Timestamped returns the segments and their "MM:SS - text" rendering
func (t *implTranscriber) Timestamped(ctx context.Context, track models.AudioTrack) (models.Transcript, error) {
	t.logger.Info(ctx, "Transcribing %s (timestamped, %s)", track.Path, t.backend.Name())

	segments, err := t.backend.Segments(ctx, track)
	if err != nil {
		return models.Transcript{}, wrapErr(ReasonService, err)
	}
	if len(segments) == 0 {
		return models.Transcript{}, &TranscriptionError{Reason: ReasonEmptyResult}
	}

	return models.Transcript{
		View:     models.ViewTimestamped,
		Text:     FormatTimestamped(segments),
		Segments: segments,
	}, nil
}

// Subtitle returns the backend's SRT document untouched
func (t *implTranscriber) Subtitle(ctx context.Context, track models.AudioTrack) (models.Transcript, error) {
	t.logger.Info(ctx, "Transcribing %s (subtitle, %s)", track.Path, t.backend.Name())

	doc, err := t.backend.SRT(ctx, track)
	if err != nil {
		return models.Transcript{}, wrapErr(ReasonService, err)
	}
	if strings.TrimSpace(doc) == "" {
		return models.Transcript{}, &TranscriptionError{Reason: ReasonEmptyResult}
	}

	return models.Transcript{View: models.ViewSubtitle, Text: doc}, nil
}

// Transcribe dispatches to the adapter for view
func (t *implTranscriber) Transcribe(ctx context.Context, track models.AudioTrack, view models.View) (models.Transcript, error) {
	switch view {
	case models.ViewPlain:
		return t.Plain(ctx, track)
	case models.ViewTimestamped:
		return t.Timestamped(ctx, track)
	case models.ViewSubtitle:
		return t.Subtitle(ctx, track)
	}
	return models.Transcript{}, &TranscriptionError{Reason: ReasonUnsupported, Err: fmt.Errorf("view %q", view)}
}

// FormatTimestamped renders one "MM:SS - text" line per segment.
// The start time is truncated to whole seconds; minutes are not wrapped at 60.
func FormatTimestamped(segments []models.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, formatLine(seg))
	}
	return strings.Join(lines, "\n")
}

func formatLine(seg models.Segment) string {
	total := int(seg.Start / time.Second)
	return fmt.Sprintf("%02d:%02d - %s", total/60, total%60, seg.Text)
}

// secondsToDuration converts fractional seconds as returned by the APIs
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
