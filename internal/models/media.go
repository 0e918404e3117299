package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Slot identifies an independently tracked asset position.
type Slot int

const (
	SlotPrimary Slot = iota
	SlotClip1
	SlotClip2
	SlotClip3
)

// MaxClips is the number of clip slots next to the primary video.
const MaxClips = 3

// AllSlots lists every slot in display order.
var AllSlots = []Slot{SlotPrimary, SlotClip1, SlotClip2, SlotClip3}

// ClipSlots lists the clip slots in index order.
var ClipSlots = []Slot{SlotClip1, SlotClip2, SlotClip3}

// ClipSlot returns the slot for clip index 1..3.
func ClipSlot(index int) (Slot, error) {
	if index < 1 || index > MaxClips {
		return 0, fmt.Errorf("clip index %d out of range 1..%d", index, MaxClips)
	}
	return Slot(index), nil
}

// ParseSlot accepts "primary", "clip1".."clip3".
func ParseSlot(s string) (Slot, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return SlotPrimary, nil
	case "clip1":
		return SlotClip1, nil
	case "clip2":
		return SlotClip2, nil
	case "clip3":
		return SlotClip3, nil
	}
	return 0, fmt.Errorf("unknown slot %q", s)
}

func (s Slot) Valid() bool { return s >= SlotPrimary && s <= SlotClip3 }

func (s Slot) IsClip() bool { return s >= SlotClip1 && s <= SlotClip3 }

// ClipIndex returns 1..3 for clip slots and 0 for the primary slot.
func (s Slot) ClipIndex() int {
	if s.IsClip() {
		return int(s)
	}
	return 0
}

// Name is the URL/form name of the slot.
func (s Slot) Name() string {
	if s.IsClip() {
		return fmt.Sprintf("clip%d", s.ClipIndex())
	}
	return "primary"
}

// String renders the slot the way stage keys spell it: "primary" or "clip[2]".
func (s Slot) String() string {
	if s.IsClip() {
		return fmt.Sprintf("clip[%d]", s.ClipIndex())
	}
	return "primary"
}

// AssetKind tags what an asset was uploaded as.
type AssetKind string

const (
	KindPrimaryVideo AssetKind = "primary-video"
	KindClip         AssetKind = "clip"
)

// KindFor returns the asset kind a slot accepts.
func KindFor(s Slot) AssetKind {
	if s.IsClip() {
		return KindClip
	}
	return KindPrimaryVideo
}

// MediaAsset is an uploaded video or clip. The payload lives at Path inside
// the owning session's workspace; an asset is never mutated after creation.
type MediaAsset struct {
	Slot       Slot      `json:"-"`
	Kind       AssetKind `json:"kind"`
	ClipIndex  int       `json:"clip_index,omitempty"`
	Name       string    `json:"name"`
	Container  string    `json:"container"`
	Size       int64     `json:"size"`
	Path       string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ContainerOf derives the lowercase container name from a file name.
func ContainerOf(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// AudioFormat is a conversion target.
type AudioFormat string

const (
	// FormatMP3 is the compressed 44.1kHz/128kbps target used for the primary video.
	FormatMP3 AudioFormat = "mp3"
	// FormatWAV is the lossless target used for clips and the legacy video path.
	FormatWAV AudioFormat = "wav"
)

// Ext returns the file extension for the format.
func (f AudioFormat) Ext() string { return "." + string(f) }

// MIMEType returns the content type used when serving or uploading the payload.
func (f AudioFormat) MIMEType() string {
	if f == FormatWAV {
		return "audio/wav"
	}
	return "audio/mpeg"
}

// AudioTrack is the audio extracted from exactly one MediaAsset.
type AudioTrack struct {
	Format     AudioFormat `json:"format"`
	SampleRate int         `json:"sample_rate,omitempty"`
	Channels   int         `json:"channels"`
	Bitrate    string      `json:"bitrate,omitempty"`
	Size       int64       `json:"size"`
	Path       string      `json:"-"`
}
