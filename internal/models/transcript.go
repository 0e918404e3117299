package models

import (
	"fmt"
	"strings"
	"time"
)

// View selects one of the three transcription response shapes.
type View string

const (
	ViewPlain       View = "plain"
	ViewTimestamped View = "timestamped"
	ViewSubtitle    View = "subtitle"
)

// AllViews lists the views in display order.
var AllViews = []View{ViewPlain, ViewTimestamped, ViewSubtitle}

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewPlain, ViewTimestamped, ViewSubtitle:
		return v, nil
	}
	return "", fmt.Errorf("unknown transcript view %q", s)
}

// FileName is the download name for a view's artifact.
func (v View) FileName() string {
	switch v {
	case ViewTimestamped:
		return "transcript_timestamped.txt"
	case ViewSubtitle:
		return "subtitles.srt"
	default:
		return "transcript.txt"
	}
}

// Segment is one timestamped unit of a transcript, in temporal order.
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Transcript is one fetched view of a transcription. Exactly one of the
// fields is populated according to View; Timestamped carries both the raw
// segments and their rendered text.
type Transcript struct {
	View     View      `json:"view"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}

// TranscriptionResult collects the views fetched so far for one audio track.
type TranscriptionResult struct {
	PlainText        string    `json:"plain_text,omitempty"`
	Segments         []Segment `json:"segments,omitempty"`
	Timestamped      string    `json:"timestamped,omitempty"`
	SubtitleDocument string    `json:"subtitle_document,omitempty"`
}
