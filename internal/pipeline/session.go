package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"github.com/nguyentantai21042004/audio-reader/internal/models"
	"golang.org/x/sync/singleflight"
)

type aggregateEntry struct {
	bodyHash string
	text     models.DerivedText
}

// Session owns the assets and stage outputs of one interactive session.
// Slots are independent; only the aggregate stage reads across them.
type Session struct {
	id        string
	workspace string
	deps      Deps
	opts      Options

	mu         sync.Mutex
	closed     bool
	lastAccess time.Time
	slots      [models.MaxClips + 1]*slotState
	aggregate  *aggregateEntry

	// life is cancelled by Close and bounds every shared external call
	life  context.Context
	stop  context.CancelFunc
	group singleflight.Group
}

// NewSession creates a session with its own temp workspace under root
func NewSession(id, root string, deps Deps, opts Options) (*Session, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	workspace, err := os.MkdirTemp(root, "session-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}

	s := &Session{
		id:         id,
		workspace:  workspace,
		deps:       deps,
		opts:       opts,
		lastAccess: time.Now(),
	}
	s.life, s.stop = context.WithCancel(context.Background())
	for _, slot := range models.AllSlots {
		s.slots[slot] = newSlotState(slot)
	}

	deps.Metrics.SessionOpened()
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) ctx(ctx context.Context) context.Context {
	return logger.WithSession(ctx, s.id)
}

// touch must be called with mu held
func (s *Session) touch() {
	s.lastAccess = time.Now()
}

// idleSince reports the last time the session was used
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Bind stores the uploaded payload as the slot's asset. Everything cached for
// the slot is discarded and its previous temp files are removed. Other slots
// are untouched.
func (s *Session) Bind(ctx context.Context, slot models.Slot, name string, r io.Reader) (models.MediaAsset, error) {
	ctx = s.ctx(ctx)
	key := slot.String() + ".asset"
	if !slot.Valid() {
		return models.MediaAsset{}, &StageError{Key: key, Err: ErrWrongSlot}
	}

	// Step 1: Reserve a new generation so in-flight work for the old asset is discarded
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.MediaAsset{}, &StageError{Key: key, Err: ErrSessionClosed}
	}
	s.touch()
	st := s.slots[slot]
	oldDir := st.dir
	st.reset()
	gen := st.gen
	dir := filepath.Join(s.workspace, slot.Name(), fmt.Sprintf("gen-%d", gen))
	st.dir = dir
	s.mu.Unlock()

	if oldDir != "" {
		if err := os.RemoveAll(oldDir); err != nil {
			s.deps.Logger.Warn(ctx, "Failed to remove previous %s files: %v", slot.Name(), err)
		}
	}

	// Step 2: Copy the payload into the generation directory
	asset, err := s.writeAsset(slot, dir, name, r)
	if err != nil {
		os.RemoveAll(dir)
		return models.MediaAsset{}, &StageError{Key: key, Err: err}
	}

	// Step 3: Publish the asset unless a newer bind or Close won the race
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// writeAsset may have re-created the slot dir after Close removed the workspace
		os.RemoveAll(s.workspace)
		return models.MediaAsset{}, &StageError{Key: key, Err: ErrSessionClosed}
	}
	if st.gen != gen {
		os.RemoveAll(dir)
		return models.MediaAsset{}, &StageError{Key: key, Err: ErrAssetReplaced}
	}
	st.asset = &asset

	s.deps.Logger.Info(ctx, "Bound %s: %s (%d bytes)", slot.Name(), asset.Name, asset.Size)
	return asset, nil
}

func (s *Session) writeAsset(slot models.Slot, dir, name string, r io.Reader) (models.MediaAsset, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.MediaAsset{}, fmt.Errorf("create slot dir: %w", err)
	}

	container := models.ContainerOf(name)
	path := filepath.Join(dir, "source."+container)
	f, err := os.Create(path)
	if err != nil {
		return models.MediaAsset{}, fmt.Errorf("create asset file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		return models.MediaAsset{}, fmt.Errorf("write asset: %w", err)
	}
	if err := f.Close(); err != nil {
		return models.MediaAsset{}, fmt.Errorf("close asset: %w", err)
	}

	return models.MediaAsset{
		Slot:       slot,
		Kind:       models.KindFor(slot),
		ClipIndex:  slot.ClipIndex(),
		Name:       filepath.Base(name),
		Container:  container,
		Size:       size,
		Path:       path,
		UploadedAt: time.Now(),
	}, nil
}

// Snapshot copies the current state of every slot. The aggregate is included
// only while it still matches the current clip descriptions and topics.
func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	s.touch()

	snap := Snapshot{ID: s.id}
	for _, st := range s.slots {
		snap.Slots = append(snap.Slots, st.snapshot())
	}
	if s.aggregate != nil && s.aggregate.bodyHash == hashBody(s.aggregateBodyLocked()) {
		snap.YouTubeDescription = copyDerived(&s.aggregate.text)
	}
	return snap, nil
}

// Audio returns the slot's converted track without converting
func (s *Session) Audio(slot models.Slot) (models.AudioTrack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.AudioTrack{}, ErrSessionClosed
	}
	s.touch()
	if !slot.Valid() {
		return models.AudioTrack{}, ErrWrongSlot
	}
	st := s.slots[slot]
	if st.audio == nil {
		return models.AudioTrack{}, ErrNotConverted
	}
	return *st.audio, nil
}

// Transcript returns a cached view without calling the transcription service
func (s *Session) Transcript(slot models.Slot, view models.View) (models.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.Transcript{}, ErrSessionClosed
	}
	s.touch()
	if !slot.Valid() {
		return models.Transcript{}, ErrWrongSlot
	}
	t, ok := s.slots[slot].transcripts[view]
	if !ok {
		return models.Transcript{}, ErrNotGenerated
	}
	return t, nil
}

// Close releases the workspace. Results of calls still in flight are dropped.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.stop()

	s.deps.Metrics.SessionClosed()
	s.deps.Logger.Info(s.ctx(ctx), "Closing session, removing %s", s.workspace)
	if err := os.RemoveAll(s.workspace); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

func hashBody(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
