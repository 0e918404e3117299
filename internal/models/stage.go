package models

import "fmt"

// Stage is one unit of work in the pipeline.
type Stage string

const (
	StageConvert     Stage = "convert"
	StageTranscribe  Stage = "transcribe"
	StageSummary     Stage = "summary"
	StageTopics      Stage = "topics"
	StageDescription Stage = "description"
	StageAggregate   Stage = "aggregate"
)

// StageKey addresses one cached entry in a session's pipeline state,
// e.g. "primary.audio", "primary.transcript.timestamped", "clip[2].description".
type StageKey struct {
	Slot  Slot
	Stage Stage
	View  View
}

func (k StageKey) String() string {
	if k.Stage == StageAggregate {
		return "youtube.description"
	}

	var field string
	switch k.Stage {
	case StageConvert:
		field = "audio"
	case StageTranscribe:
		field = "transcript"
		if k.View != "" && k.View != ViewPlain {
			field += "." + string(k.View)
		}
	default:
		field = string(k.Stage)
	}
	return fmt.Sprintf("%s.%s", k.Slot, field)
}

// SlotStatus is the furthest point a slot's state machine has reached.
type SlotStatus string

const (
	StatusEmpty           SlotStatus = "empty"
	StatusBound           SlotStatus = "bound"
	StatusConverted       SlotStatus = "converted"
	StatusTranscribed     SlotStatus = "transcribed"
	StatusSummarized      SlotStatus = "summarized"
	StatusTopicsExtracted SlotStatus = "topics_extracted"
	StatusDescribed       SlotStatus = "described"
)
