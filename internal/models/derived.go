package models

import "strings"

// DerivedKind names a text-generation artifact.
type DerivedKind string

const (
	DerivedSummary            DerivedKind = "summary"
	DerivedTopics             DerivedKind = "topics"
	DerivedClipDescription    DerivedKind = "clip-description"
	DerivedYouTubeDescription DerivedKind = "youtube-description"
)

// MaxTopics bounds the parsed topic list.
const MaxTopics = 5

// DerivedText is the output of a text derivation stage. Topics is set only
// for DerivedTopics; Content holds the single string for every other kind.
type DerivedText struct {
	Kind    DerivedKind `json:"kind"`
	Content string      `json:"content,omitempty"`
	Topics  []string    `json:"topics,omitempty"`
}

// Text renders the artifact as plain text for export.
func (d DerivedText) Text() string {
	if d.Kind == DerivedTopics {
		return strings.Join(d.Topics, "\n")
	}
	return d.Content
}
