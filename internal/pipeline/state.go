package pipeline

import (
	"github.com/nguyentantai21042004/audio-reader/internal/models"
)

// slotState is one slot's cached stage outputs. gen increases on every bind;
// a result computed for an older gen is never stored.
type slotState struct {
	slot models.Slot
	gen  uint64
	dir  string

	asset       *models.MediaAsset
	audio       *models.AudioTrack
	transcripts map[models.View]models.Transcript
	summary     *models.DerivedText
	topics      *models.DerivedText
	description *models.DerivedText
}

func newSlotState(slot models.Slot) *slotState {
	return &slotState{
		slot:        slot,
		transcripts: make(map[models.View]models.Transcript),
	}
}

// reset drops every cached entry and starts a new generation
func (st *slotState) reset() {
	st.gen++
	st.dir = ""
	st.asset = nil
	st.audio = nil
	st.transcripts = make(map[models.View]models.Transcript)
	st.summary = nil
	st.topics = nil
	st.description = nil
}

func (st *slotState) status() models.SlotStatus {
	switch {
	case st.description != nil:
		return models.StatusDescribed
	case st.topics != nil:
		return models.StatusTopicsExtracted
	case st.summary != nil:
		return models.StatusSummarized
	case len(st.transcripts) > 0:
		return models.StatusTranscribed
	case st.audio != nil:
		return models.StatusConverted
	case st.asset != nil:
		return models.StatusBound
	}
	return models.StatusEmpty
}

// SlotSnapshot is a copy of one slot's state.
type SlotSnapshot struct {
	Slot        string                            `json:"slot"`
	Status      models.SlotStatus                 `json:"status"`
	Asset       *models.MediaAsset                `json:"asset,omitempty"`
	Audio       *models.AudioTrack                `json:"audio,omitempty"`
	Transcripts map[models.View]models.Transcript `json:"transcripts,omitempty"`
	Summary     *models.DerivedText               `json:"summary,omitempty"`
	Topics      *models.DerivedText               `json:"topics,omitempty"`
	Description *models.DerivedText               `json:"description,omitempty"`
}

// Snapshot is a consistent copy of a whole session.
type Snapshot struct {
	ID                 string              `json:"id"`
	Slots              []SlotSnapshot      `json:"slots"`
	YouTubeDescription *models.DerivedText `json:"youtube_description,omitempty"`
}

// Slot returns the snapshot of s
func (snap Snapshot) Slot(s models.Slot) SlotSnapshot {
	for _, ss := range snap.Slots {
		if ss.Slot == s.Name() {
			return ss
		}
	}
	return SlotSnapshot{Slot: s.Name(), Status: models.StatusEmpty}
}

func (st *slotState) snapshot() SlotSnapshot {
	snap := SlotSnapshot{
		Slot:   st.slot.Name(),
		Status: st.status(),
		Asset:  copyPtr(st.asset),
		Audio:  copyPtr(st.audio),
	}
	if len(st.transcripts) > 0 {
		snap.Transcripts = make(map[models.View]models.Transcript, len(st.transcripts))
		for v, t := range st.transcripts {
			snap.Transcripts[v] = t
		}
	}
	snap.Summary = copyDerived(st.summary)
	snap.Topics = copyDerived(st.topics)
	snap.Description = copyDerived(st.description)
	return snap
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyDerived(d *models.DerivedText) *models.DerivedText {
	if d == nil {
		return nil
	}
	c := *d
	if d.Topics != nil {
		c.Topics = append([]string(nil), d.Topics...)
	}
	return &c
}
