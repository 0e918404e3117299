package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nguyentantai21042004/audio-reader/internal/derive"
	"github.com/nguyentantai21042004/audio-reader/internal/models"
)

// stage describes one cacheable transition of a slot. cached and prepare run
// under the session lock; the call returned by prepare runs without it.
type stage[T any] struct {
	key     models.StageKey
	service string
	cached  func(st *slotState) (T, bool)
	prepare func(st *slotState) (func(context.Context) (T, error), error)
	store   func(st *slotState, v T)
}

func runStage[T any](ctx context.Context, s *Session, sg stage[T]) (T, error) {
	var zero T
	ctx = s.ctx(ctx)
	name := sg.key.String()

	if !sg.key.Slot.Valid() {
		return zero, &StageError{Key: name, Err: ErrWrongSlot}
	}

	// Step 1: Serve from cache or capture the inputs for this generation
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return zero, &StageError{Key: name, Err: ErrSessionClosed}
	}
	s.touch()
	st := s.slots[sg.key.Slot]
	if v, ok := sg.cached(st); ok {
		s.mu.Unlock()
		s.deps.Metrics.CacheHit(string(sg.key.Stage))
		s.deps.Logger.Debug(ctx, "%s: cache hit", name)
		return v, nil
	}
	call, err := sg.prepare(st)
	gen := st.gen
	s.mu.Unlock()
	if err != nil {
		return zero, &StageError{Key: name, Err: err}
	}

	// Step 2: One external call per key and generation, even under concurrent callers
	res, err := s.shared(ctx, fmt.Sprintf("%s@%d", name, gen), func(callCtx context.Context) (any, error) {
		s.mu.Lock()
		if st.gen != gen {
			s.mu.Unlock()
			return nil, ErrAssetReplaced
		}
		if v, ok := sg.cached(st); ok {
			s.mu.Unlock()
			return v, nil
		}
		s.mu.Unlock()

		started := time.Now()
		s.deps.Metrics.ExternalCall(sg.service, string(sg.key.Stage))
		s.deps.Logger.Info(callCtx, "%s: running (%s)", name, sg.service)
		v, err := call(callCtx)
		s.deps.Metrics.StageDone(string(sg.key.Stage), started, err)

		// Step 3: Store only if the slot still holds the asset we started from
		s.mu.Lock()
		defer s.mu.Unlock()
		s.touch()
		switch {
		case s.closed:
			return nil, ErrSessionClosed
		case st.gen != gen:
			return nil, ErrAssetReplaced
		case err != nil:
			return nil, err
		}
		sg.store(st, v)
		return v, nil
	})
	if err != nil {
		s.logFailure(ctx, name, err)
		return zero, &StageError{Key: name, Err: err}
	}

	return res.(T), nil
}

// shared runs fn once per key for all concurrent callers. fn gets a context
// that only Close or the stage timeout can cancel; each caller stops waiting
// when its own ctx is done without affecting the others.
func (s *Session) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		timeout := s.opts.StageTimeout
		if timeout <= 0 {
			timeout = defaultStageTimeout
		}
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		stop := context.AfterFunc(s.life, cancel)
		defer stop()
		return fn(callCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) logFailure(ctx context.Context, name string, err error) {
	switch {
	case errors.Is(err, ErrAssetReplaced), errors.Is(err, ErrSessionClosed):
	case ctx.Err() != nil:
		s.deps.Logger.Debug(ctx, "%s: caller gave up: %v", name, err)
	default:
		s.deps.Logger.Error(ctx, "%s failed: %v", name, err)
	}
}

func (s *Session) targetFor(slot models.Slot) models.AudioFormat {
	if slot.IsClip() || s.opts.LegacyVideo {
		return models.FormatWAV
	}
	return models.FormatMP3
}

// Convert extracts the slot's audio track
func (s *Session) Convert(ctx context.Context, slot models.Slot) (models.AudioTrack, error) {
	return runStage(ctx, s, stage[models.AudioTrack]{
		key:     models.StageKey{Slot: slot, Stage: models.StageConvert},
		service: serviceFFmpeg,
		cached: func(st *slotState) (models.AudioTrack, bool) {
			if st.audio == nil {
				return models.AudioTrack{}, false
			}
			return *st.audio, true
		},
		prepare: func(st *slotState) (func(context.Context) (models.AudioTrack, error), error) {
			if st.asset == nil {
				return nil, ErrNoAsset
			}
			asset, dir, target := *st.asset, st.dir, s.targetFor(slot)
			return func(ctx context.Context) (models.AudioTrack, error) {
				return s.deps.Converter.Convert(ctx, asset, target, dir)
			}, nil
		},
		store: func(st *slotState, v models.AudioTrack) { st.audio = &v },
	})
}

// Transcribe fetches one view of the slot's transcript. Views are cached separately.
func (s *Session) Transcribe(ctx context.Context, slot models.Slot, view models.View) (models.Transcript, error) {
	return runStage(ctx, s, stage[models.Transcript]{
		key:     models.StageKey{Slot: slot, Stage: models.StageTranscribe, View: view},
		service: s.opts.TranscriptionService,
		cached: func(st *slotState) (models.Transcript, bool) {
			t, ok := st.transcripts[view]
			return t, ok
		},
		prepare: func(st *slotState) (func(context.Context) (models.Transcript, error), error) {
			if st.audio == nil {
				return nil, ErrNotConverted
			}
			track := *st.audio
			return func(ctx context.Context) (models.Transcript, error) {
				return s.deps.Transcriber.Transcribe(ctx, track, view)
			}, nil
		},
		store: func(st *slotState, v models.Transcript) { st.transcripts[view] = v },
	})
}

// plainInput captures the plain transcript a derivation stage reads
func plainInput(st *slotState) (string, error) {
	t, ok := st.transcripts[models.ViewPlain]
	if !ok {
		return "", ErrNotTranscribed
	}
	return t.Text, nil
}

func (s *Session) derived(slot models.Slot, st models.Stage, field func(*slotState) **models.DerivedText,
	gen func(ctx context.Context, transcript string) (models.DerivedText, error)) stage[models.DerivedText] {
	return stage[models.DerivedText]{
		key:     models.StageKey{Slot: slot, Stage: st},
		service: s.opts.GenerationService,
		cached: func(ss *slotState) (models.DerivedText, bool) {
			if d := *field(ss); d != nil {
				return *copyDerived(d), true
			}
			return models.DerivedText{}, false
		},
		prepare: func(ss *slotState) (func(context.Context) (models.DerivedText, error), error) {
			transcript, err := plainInput(ss)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context) (models.DerivedText, error) {
				return gen(ctx, transcript)
			}, nil
		},
		store: func(ss *slotState, v models.DerivedText) { *field(ss) = copyDerived(&v) },
	}
}

// Summarize produces the primary video's summary
func (s *Session) Summarize(ctx context.Context) (models.DerivedText, error) {
	return runStage(ctx, s, s.derived(models.SlotPrimary, models.StageSummary,
		func(st *slotState) **models.DerivedText { return &st.summary },
		s.deps.Deriver.Summary))
}

// ExtractTopics produces at most five key topics of the primary video
func (s *Session) ExtractTopics(ctx context.Context) (models.DerivedText, error) {
	return runStage(ctx, s, s.derived(models.SlotPrimary, models.StageTopics,
		func(st *slotState) **models.DerivedText { return &st.topics },
		s.deps.Deriver.Topics))
}

// DescribeClip produces the description and hashtags of a clip slot
func (s *Session) DescribeClip(ctx context.Context, slot models.Slot) (models.DerivedText, error) {
	key := models.StageKey{Slot: slot, Stage: models.StageDescription}
	if !slot.IsClip() {
		return models.DerivedText{}, &StageError{Key: key.String(), Err: ErrWrongSlot}
	}
	return runStage(ctx, s, s.derived(slot, models.StageDescription,
		func(st *slotState) **models.DerivedText { return &st.description },
		s.deps.Deriver.ClipDescription))
}

// aggregateBodyLocked builds the aggregate request from whatever is available now.
// Must be called with mu held.
func (s *Session) aggregateBodyLocked() string {
	var descs []string
	for _, slot := range models.ClipSlots {
		if d := s.slots[slot].description; d != nil {
			descs = append(descs, d.Content)
		}
	}
	var topics []string
	if t := s.slots[models.SlotPrimary].topics; t != nil {
		topics = t.Topics
	}
	return derive.BuildAggregateBody(descs, topics)
}

// AggregateDescription combines the available clip descriptions and topics
// into a YouTube description. Missing inputs are skipped, never waited for.
// The result is cached against the exact request body.
func (s *Session) AggregateDescription(ctx context.Context) (models.DerivedText, error) {
	ctx = s.ctx(ctx)
	name := models.StageKey{Stage: models.StageAggregate}.String()
	stageLabel := string(models.StageAggregate)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.DerivedText{}, &StageError{Key: name, Err: ErrSessionClosed}
	}
	s.touch()
	body := s.aggregateBodyLocked()
	hash := hashBody(body)
	if s.aggregate != nil && s.aggregate.bodyHash == hash {
		text := *copyDerived(&s.aggregate.text)
		s.mu.Unlock()
		s.deps.Metrics.CacheHit(stageLabel)
		s.deps.Logger.Debug(ctx, "%s: cache hit", name)
		return text, nil
	}
	s.mu.Unlock()

	res, err := s.shared(ctx, name+"#"+hash, func(callCtx context.Context) (any, error) {
		started := time.Now()
		s.deps.Metrics.ExternalCall(s.opts.GenerationService, stageLabel)
		s.deps.Logger.Info(callCtx, "%s: running (%d chars of input)", name, len(body))
		v, err := s.deps.Deriver.YouTubeDescription(callCtx, body)
		s.deps.Metrics.StageDone(stageLabel, started, err)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return nil, ErrSessionClosed
		}
		s.aggregate = &aggregateEntry{bodyHash: hash, text: v}
		return v, nil
	})
	if err != nil {
		s.logFailure(ctx, name, err)
		return models.DerivedText{}, &StageError{Key: name, Err: err}
	}
	return res.(models.DerivedText), nil
}
