package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nguyentantai21042004/audio-reader/internal/converter"
	"github.com/nguyentantai21042004/audio-reader/internal/derive"
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"github.com/nguyentantai21042004/audio-reader/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverter struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func (f *fakeConverter) Convert(_ context.Context, asset models.MediaAsset, target models.AudioFormat, outDir string) (models.AudioTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[asset.Slot.Name()]++
	if err := f.fail[asset.Slot.Name()]; err != nil {
		return models.AudioTrack{}, err
	}
	path := filepath.Join(outDir, "audio"+target.Ext())
	if err := os.WriteFile(path, []byte("audio of "+asset.Name), 0644); err != nil {
		return models.AudioTrack{}, err
	}
	return models.AudioTrack{Format: target, Channels: 1, Path: path, Size: 1}, nil
}

func (f *fakeConverter) count(slot models.Slot) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[slot.Name()]
}

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	block chan struct{}
	err   error
}

func (f *fakeTranscriber) Plain(ctx context.Context, track models.AudioTrack) (models.Transcript, error) {
	return f.Transcribe(ctx, track, models.ViewPlain)
}

func (f *fakeTranscriber) Timestamped(ctx context.Context, track models.AudioTrack) (models.Transcript, error) {
	return f.Transcribe(ctx, track, models.ViewTimestamped)
}

func (f *fakeTranscriber) Subtitle(ctx context.Context, track models.AudioTrack) (models.Transcript, error) {
	return f.Transcribe(ctx, track, models.ViewSubtitle)
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, track models.AudioTrack, view models.View) (models.Transcript, error) {
	f.mu.Lock()
	f.calls++
	block, err := f.block, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return models.Transcript{}, ctx.Err()
		}
	}
	if err != nil {
		return models.Transcript{}, err
	}
	data, _ := os.ReadFile(track.Path)
	return models.Transcript{View: view, Text: string(view) + ": " + string(data)}, nil
}

func (f *fakeTranscriber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDeriver struct {
	mu      sync.Mutex
	block   chan struct{}
	calls   map[models.DerivedKind]int
	bodies  []string
	topics  string
	failFor map[models.DerivedKind]error
}

func (f *fakeDeriver) record(kind models.DerivedKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[models.DerivedKind]int)
	}
	f.calls[kind]++
	return f.failFor[kind]
}

func (f *fakeDeriver) count(kind models.DerivedKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeDeriver) Summary(_ context.Context, transcript string) (models.DerivedText, error) {
	if err := f.record(models.DerivedSummary); err != nil {
		return models.DerivedText{}, err
	}
	return models.DerivedText{Kind: models.DerivedSummary, Content: "summary of " + transcript}, nil
}

func (f *fakeDeriver) Topics(_ context.Context, _ string) (models.DerivedText, error) {
	if err := f.record(models.DerivedTopics); err != nil {
		return models.DerivedText{}, err
	}
	raw := f.topics
	if raw == "" {
		raw = "1. Budget planning\nRisk management\n3. Timeline \n"
	}
	return models.DerivedText{Kind: models.DerivedTopics, Topics: derive.CleanTopics(raw)}, nil
}

func (f *fakeDeriver) ClipDescription(_ context.Context, transcript string) (models.DerivedText, error) {
	if err := f.record(models.DerivedClipDescription); err != nil {
		return models.DerivedText{}, err
	}
	return models.DerivedText{Kind: models.DerivedClipDescription, Content: "desc(" + transcript + ") #tag"}, nil
}

func (f *fakeDeriver) YouTubeDescription(ctx context.Context, body string) (models.DerivedText, error) {
	if err := f.record(models.DerivedYouTubeDescription); err != nil {
		return models.DerivedText{}, err
	}
	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return models.DerivedText{}, ctx.Err()
		}
	}
	return models.DerivedText{Kind: models.DerivedYouTubeDescription, Content: "youtube #a, #b"}, nil
}

type fixture struct {
	session *Session
	conv    *fakeConverter
	trans   *fakeTranscriber
	deriver *fakeDeriver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		conv:    &fakeConverter{},
		trans:   &fakeTranscriber{},
		deriver: &fakeDeriver{},
	}
	s, err := NewSession("test-session", t.TempDir(), Deps{
		Converter:   f.conv,
		Transcriber: f.trans,
		Deriver:     f.deriver,
		Logger:      logger.Nop(),
	}, Options{MaxConcurrent: 4, TranscriptionService: "fake-stt", GenerationService: "fake-llm"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	f.session = s
	return f
}

func (f *fixture) bind(t *testing.T, slot models.Slot, name string) models.MediaAsset {
	t.Helper()
	asset, err := f.session.Bind(context.Background(), slot, name, strings.NewReader("payload of "+name))
	require.NoError(t, err)
	return asset
}

// runPrimary takes the primary slot through convert, plain transcript, summary and topics
func (f *fixture) runPrimary(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.session.Convert(ctx, models.SlotPrimary)
	require.NoError(t, err)
	_, err = f.session.Transcribe(ctx, models.SlotPrimary, models.ViewPlain)
	require.NoError(t, err)
	_, err = f.session.Summarize(ctx)
	require.NoError(t, err)
	_, err = f.session.ExtractTopics(ctx)
	require.NoError(t, err)
}

func (f *fixture) runClip(t *testing.T, slot models.Slot) {
	t.Helper()
	ctx := context.Background()
	_, err := f.session.Convert(ctx, slot)
	require.NoError(t, err)
	_, err = f.session.Transcribe(ctx, slot, models.ViewPlain)
	require.NoError(t, err)
	_, err = f.session.DescribeClip(ctx, slot)
	require.NoError(t, err)
}

func TestBindStoresAsset(t *testing.T) {
	f := newFixture(t)
	asset := f.bind(t, models.SlotClip2, "dir/Clip.MOV")

	assert.Equal(t, models.KindClip, asset.Kind)
	assert.Equal(t, 2, asset.ClipIndex)
	assert.Equal(t, "Clip.MOV", asset.Name)
	assert.Equal(t, "mov", asset.Container)
	assert.Equal(t, int64(len("payload of dir/Clip.MOV")), asset.Size)

	data, err := os.ReadFile(asset.Path)
	require.NoError(t, err)
	assert.Equal(t, "payload of dir/Clip.MOV", string(data))

	snap, err := f.session.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, models.StatusBound, snap.Slot(models.SlotClip2).Status)
	assert.Equal(t, models.StatusEmpty, snap.Slot(models.SlotPrimary).Status)
}

func TestConvertThenTranscribeIsCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bind(t, models.SlotPrimary, "talk.mp4")

	track, err := f.session.Convert(ctx, models.SlotPrimary)
	require.NoError(t, err)
	assert.Equal(t, models.FormatMP3, track.Format)

	first, err := f.session.Transcribe(ctx, models.SlotPrimary, models.ViewPlain)
	require.NoError(t, err)
	second, err := f.session.Transcribe(ctx, models.SlotPrimary, models.ViewPlain)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.Text)
	assert.Equal(t, 1, f.trans.count(), "second transcribe must be served from cache")

	_, err = f.session.Convert(ctx, models.SlotPrimary)
	require.NoError(t, err)
	assert.Equal(t, 1, f.conv.count(models.SlotPrimary))
}

func TestViewsAreCachedSeparately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bind(t, models.SlotPrimary, "talk.mp4")
	_, err := f.session.Convert(ctx, models.SlotPrimary)
	require.NoError(t, err)

	for _, view := range models.AllViews {
		_, err := f.session.Transcribe(ctx, models.SlotPrimary, view)
		require.NoError(t, err)
	}
	for _, view := range models.AllViews {
		_, err := f.session.Transcribe(ctx, models.SlotPrimary, view)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.trans.count())

	cached, err := f.session.Transcript(models.SlotPrimary, models.ViewSubtitle)
	require.NoError(t, err)
	assert.Equal(t, models.ViewSubtitle, cached.View)
}

func TestPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.session.Convert(ctx, models.SlotPrimary)
	assert.ErrorIs(t, err, ErrNoAsset)

	f.bind(t, models.SlotPrimary, "talk.mp4")
	_, err = f.session.Transcribe(ctx, models.SlotPrimary, models.ViewPlain)
	assert.ErrorIs(t, err, ErrNotConverted)

	_, err = f.session.Convert(ctx, models.SlotPrimary)
	require.NoError(t, err)
	_, err = f.session.Summarize(ctx)
	assert.ErrorIs(t, err, ErrNotTranscribed)

	// timestamped alone does not satisfy derivations
	_, err = f.session.Transcribe(ctx, models.SlotPrimary, models.ViewTimestamped)
	require.NoError(t, err)
	_, err = f.session.ExtractTopics(ctx)
	assert.ErrorIs(t, err, ErrNotTranscribed)

	_, err = f.session.DescribeClip(ctx, models.SlotPrimary)
	assert.ErrorIs(t, err, ErrWrongSlot)

	_, err = f.session.Transcript(models.SlotPrimary, models.ViewSubtitle)
	assert.ErrorIs(t, err, ErrNotGenerated)

	assert.Equal(t, 0, f.deriver.count(models.DerivedSummary))
	assert.True(t, IsPrecondition(err))
}

func TestRebindPrimaryClearsOnlyPrimary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bind(t, models.SlotPrimary, "talk.mp4")
	f.bind(t, models.SlotClip1, "clip1.mp4")
	f.runPrimary(t)
	f.runClip(t, models.SlotClip1)

	before, err := f.session.Snapshot()
	require.NoError(t, err)
	oldAudio := before.Slot(models.SlotPrimary).Audio.Path

	f.bind(t, models.SlotPrimary, "second-talk.mov")

	after, err := f.session.Snapshot()
	require.NoError(t, err)
	primary := after.Slot(models.SlotPrimary)
	assert.Equal(t, models.StatusBound, primary.Status)
	assert.Nil(t, primary.Audio)
	assert.Nil(t, primary.Summary)
	assert.Nil(t, primary.Topics)
	assert.Empty(t, primary.Transcripts)
	assert.NoFileExists(t, oldAudio, "previous generation files are released on rebind")

	assert.Equal(t, before.Slot(models.SlotClip1), after.Slot(models.SlotClip1))

	// re-running the clip is all cache hits
	f.runClip(t, models.SlotClip1)
	assert.Equal(t, 1, f.conv.count(models.SlotClip1))
	assert.Equal(t, 1, f.deriver.count(models.DerivedClipDescription))

	// summary needs a transcript of the new primary video
	_, err = f.session.Summarize(ctx)
	assert.ErrorIs(t, err, ErrNotTranscribed)
}

func TestRebindClipLeavesPrimaryAndOtherClips(t *testing.T) {
	f := newFixture(t)
	f.bind(t, models.SlotPrimary, "talk.mp4")
	f.bind(t, models.SlotClip1, "c1.mp4")
	f.bind(t, models.SlotClip3, "c3.mp4")
	f.runPrimary(t)
	f.runClip(t, models.SlotClip1)
	f.runClip(t, models.SlotClip3)

	before, err := f.session.Snapshot()
	require.NoError(t, err)

	f.bind(t, models.SlotClip3, "c3-new.mp4")

	after, err := f.session.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before.Slot(models.SlotPrimary), after.Slot(models.SlotPrimary))
	assert.Equal(t, before.Slot(models.SlotClip1), after.Slot(models.SlotClip1))
	assert.Nil(t, after.Slot(models.SlotClip3).Description)
}

func TestConversionErrorOnClip2IsIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	convErr := &converter.ConversionError{Reason: converter.ReasonNoAudioStream}
	f.conv.fail = map[string]error{"clip2": convErr}

	f.bind(t, models.SlotPrimary, "talk.mp4")
	for _, slot := range models.ClipSlots {
		f.bind(t, slot, slot.Name()+".mp4")
	}
	f.runPrimary(t)
	f.runClip(t, models.SlotClip1)
	f.runClip(t, models.SlotClip3)

	before, err := f.session.Snapshot()
	require.NoError(t, err)

	_, err = f.session.Convert(ctx, models.SlotClip2)
	var ce *converter.ConversionError
	require.ErrorAs(t, err, &ce)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "clip[2].audio", se.Key)

	// the dependent stage is not attempted
	_, err = f.session.Transcribe(ctx, models.SlotClip2, models.ViewPlain)
	assert.ErrorIs(t, err, ErrNotConverted)

	after, err := f.session.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before.Slot(models.SlotPrimary), after.Slot(models.SlotPrimary))
	assert.Equal(t, before.Slot(models.SlotClip1), after.Slot(models.SlotClip1))
	assert.Equal(t, before.Slot(models.SlotClip3), after.Slot(models.SlotClip3))
	assert.Equal(t, models.StatusBound, after.Slot(models.SlotClip2).Status)

	// retry succeeds once the cause is gone
	f.conv.mu.Lock()
	f.conv.fail = nil
	f.conv.mu.Unlock()
	_, err = f.session.Convert(ctx, models.SlotClip2)
	require.NoError(t, err)
}

func TestFailedStageLeavesNoCacheEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bind(t, models.SlotPrimary, "talk.mp4")
	_, err := f.session.Convert(ctx, models.SlotPrimary)
	require.NoError(t, err)
	_, err = f.session.Transcribe(ctx, models.SlotPrimary, models.ViewPlain)
	require.NoError(t, err)

	genErr := &derive.GenerationError{Kind: "summary", Reason: derive.ReasonEmpty}
	f.deriver.failFor = map[models.DerivedKind]error{models.DerivedSummary: genErr}
	_, err = f.session.Summarize(ctx)
	require.ErrorIs(t, err, genErr)

	snap, err := f.session.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, snap.Slot(models.SlotPrimary).Summary)

	f.deriver.failFor = nil
	got, err := f.session.Summarize(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Content)
	assert.Equal(t, 2, f.deriver.count(models.DerivedSummary))
}

func TestAggregateWithNothingAvailableStillCalls(t *testing.T) {
	f := newFixture(t)

	got, err := f.session.AggregateDescription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "youtube #a, #b", got.Content)
	require.Len(t, f.deriver.bodies, 1)
	assert.Equal(t, "", f.deriver.bodies[0])
}

func TestAggregateBodyAndCaching(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bind(t, models.SlotPrimary, "talk.mp4")
	f.bind(t, models.SlotClip1, "c1.mp4")
	f.bind(t, models.SlotClip3, "c3.mp4")
	f.runPrimary(t)
	f.runClip(t, models.SlotClip1)
	f.runClip(t, models.SlotClip3)

	_, err := f.session.AggregateDescription(ctx)
	require.NoError(t, err)
	_, err = f.session.AggregateDescription(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.deriver.count(models.DerivedYouTubeDescription))

	snap, err := f.session.Snapshot()
	require.NoError(t, err)
	want := derive.BuildAggregateBody(
		[]string{snap.Slot(models.SlotClip1).Description.Content, snap.Slot(models.SlotClip3).Description.Content},
		[]string{"Budget planning", "Risk management", "Timeline"},
	)
	assert.Equal(t, []string{want}, f.deriver.bodies)
	require.NotNil(t, snap.YouTubeDescription)

	// a changed input invalidates the cached aggregate
	f.bind(t, models.SlotClip3, "c3-new.mp4")
	snap, err = f.session.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, snap.YouTubeDescription)

	_, err = f.session.AggregateDescription(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.deriver.count(models.DerivedYouTubeDescription))
	assert.NotContains(t, f.deriver.bodies[1], "c3.mp4")
}

func TestEndToEndPrimaryOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bind(t, models.SlotPrimary, "talk.mp4")

	_, err := f.session.Convert(ctx, models.SlotPrimary)
	require.NoError(t, err)
	plain, err := f.session.Transcribe(ctx, models.SlotPrimary, models.ViewPlain)
	require.NoError(t, err)
	assert.NotEmpty(t, plain.Text)

	summary, err := f.session.Summarize(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.Content)

	topics, err := f.session.ExtractTopics(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(topics.Topics), models.MaxTopics)
	for _, topic := range topics.Topics {
		assert.NotEmpty(t, topic)
	}

	yt, err := f.session.AggregateDescription(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, yt.Content)
	assert.Equal(t, []string{"Budget planning\nRisk management\nTimeline"}, f.deriver.bodies)
}

func TestTopicsTruncatedToFive(t *testing.T) {
	f := newFixture(t)
	f.deriver.topics = "1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n7. g"
	f.bind(t, models.SlotPrimary, "talk.mp4")
	f.runPrimary(t)

	snap, err := f.session.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, snap.Slot(models.SlotPrimary).Topics.Topics)
}

func TestConcurrentCallsShareOneExternalCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bind(t, models.SlotPrimary, "talk.mp4")
	_, err := f.session.Convert(ctx, models.SlotPrimary)
	require.NoError(t, err)

	release := make(chan struct{})
	f.trans.block = release

	var wg sync.WaitGroup
	results := make([]models.Transcript, 5)
	errs := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.session.Transcribe(ctx, models.SlotPrimary, models.ViewPlain)
		}()
	}

	require.Eventually(t, func() bool { return f.trans.count() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
	assert.Equal(t, 1, f.trans.count())
}

func TestCancelledCallerDoesNotFailOthers(t *testing.T) {
	f := newFixture(t)
	f.bind(t, models.SlotPrimary, "talk.mp4")
	_, err := f.session.Convert(context.Background(), models.SlotPrimary)
	require.NoError(t, err)

	release := make(chan struct{})
	f.trans.block = release

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := f.session.Transcribe(first, models.SlotPrimary, models.ViewPlain)
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return f.trans.count() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		t   models.Transcript
		err error
	}
	secondDone := make(chan result, 1)
	go func() {
		tr, err := f.session.Transcribe(context.Background(), models.SlotPrimary, models.ViewPlain)
		secondDone <- result{tr, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	close(release)
	got := <-secondDone
	require.NoError(t, got.err)
	assert.Equal(t, "plain: audio of talk.mp4", got.t.Text)
	assert.Equal(t, 1, f.trans.count())

	cached, err := f.session.Transcript(models.SlotPrimary, models.ViewPlain)
	require.NoError(t, err)
	assert.Equal(t, got.t, cached)
}

func TestCancelledCallerDoesNotFailSharedAggregate(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.deriver.block = release

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := f.session.AggregateDescription(first)
		firstDone <- err
	}()
	require.Eventually(t, func() bool {
		return f.deriver.count(models.DerivedYouTubeDescription) == 1
	}, time.Second, 5*time.Millisecond)

	secondDone := make(chan error, 1)
	go func() {
		_, err := f.session.AggregateDescription(context.Background())
		secondDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	close(release)
	require.NoError(t, <-secondDone)
	assert.Equal(t, 1, f.deriver.count(models.DerivedYouTubeDescription))
}

func TestCloseCancelsInFlightCall(t *testing.T) {
	f := newFixture(t)
	f.bind(t, models.SlotPrimary, "talk.mp4")
	_, err := f.session.Convert(context.Background(), models.SlotPrimary)
	require.NoError(t, err)
	f.trans.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.session.Transcribe(context.Background(), models.SlotPrimary, models.ViewPlain)
		done <- err
	}()
	require.Eventually(t, func() bool { return f.trans.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.session.Close(context.Background()))
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight call was not cancelled by Close")
	}
}

func TestStageTimeoutBoundsSharedCall(t *testing.T) {
	f := newFixture(t)
	f.session.opts.StageTimeout = 20 * time.Millisecond
	f.bind(t, models.SlotPrimary, "talk.mp4")
	_, err := f.session.Convert(context.Background(), models.SlotPrimary)
	require.NoError(t, err)
	f.trans.block = make(chan struct{})

	_, err = f.session.Transcribe(context.Background(), models.SlotPrimary, models.ViewPlain)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = f.session.Transcript(models.SlotPrimary, models.ViewPlain)
	assert.ErrorIs(t, err, ErrNotGenerated)
}

type closingReader struct {
	session *Session
	done    bool
}

// Read closes the session and then writes into the slot dir as if the
// upload had started right after the workspace was removed.
func (r *closingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	r.done = true
	if err := r.session.Close(context.Background()); err != nil {
		return 0, err
	}
	dir := filepath.Join(r.session.workspace, models.SlotPrimary.Name(), "gen-1")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Join(dir, "late.bin"), []byte("late"), 0644); err != nil {
		return 0, err
	}
	return copy(p, "payload"), nil
}

func TestCloseDuringBindLeavesNoFiles(t *testing.T) {
	f := newFixture(t)
	workspace := f.session.workspace

	_, err := f.session.Bind(context.Background(), models.SlotPrimary, "talk.mp4", &closingReader{session: f.session})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.NoDirExists(t, workspace)
}

func TestRebindDuringStageDiscardsResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bind(t, models.SlotPrimary, "talk.mp4")
	_, err := f.session.Convert(ctx, models.SlotPrimary)
	require.NoError(t, err)

	release := make(chan struct{})
	f.trans.block = release

	done := make(chan error, 1)
	go func() {
		_, err := f.session.Transcribe(ctx, models.SlotPrimary, models.ViewPlain)
		done <- err
	}()

	require.Eventually(t, func() bool { return f.trans.count() == 1 }, time.Second, 5*time.Millisecond)
	f.bind(t, models.SlotPrimary, "replacement.mp4")
	close(release)

	assert.ErrorIs(t, <-done, ErrAssetReplaced)
	_, err = f.session.Transcript(models.SlotPrimary, models.ViewPlain)
	assert.ErrorIs(t, err, ErrNotGenerated)
}

func TestClosedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bind(t, models.SlotPrimary, "talk.mp4")
	workspace := f.session.workspace

	require.NoError(t, f.session.Close(ctx))
	require.NoError(t, f.session.Close(ctx))
	assert.NoDirExists(t, workspace)

	_, err := f.session.Convert(ctx, models.SlotPrimary)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = f.session.Bind(ctx, models.SlotClip1, "c.mp4", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = f.session.Snapshot()
	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestLegacyVideoConvertsPrimaryToWAV(t *testing.T) {
	f := newFixture(t)
	f.session.opts.LegacyVideo = true
	f.bind(t, models.SlotPrimary, "talk.mp4")
	f.bind(t, models.SlotClip1, "c1.mp4")

	track, err := f.session.Convert(context.Background(), models.SlotPrimary)
	require.NoError(t, err)
	assert.Equal(t, models.FormatWAV, track.Format)

	f.session.opts.LegacyVideo = false
	clip, err := f.session.Convert(context.Background(), models.SlotClip1)
	require.NoError(t, err)
	assert.Equal(t, models.FormatWAV, clip.Format)
}
