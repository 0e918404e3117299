package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"github.com/nguyentantai21042004/audio-reader/internal/models"
	"github.com/nguyentantai21042004/audio-reader/pkg/executor"
)

// WhisperCPPOptions configures the local whisper.cpp CLI backend.
type WhisperCPPOptions struct {
	BinaryPath string
	ModelPath  string
	Threads    int
	Language   string
	Prompt     string
}

type whisperCPPBackend struct {
	opts     WhisperCPPOptions
	executor executor.Executor
	logger   logger.Logger
}

// NewWhisperCPP creates a Backend that shells out to whisper-cli
func NewWhisperCPP(opts WhisperCPPOptions, exec executor.Executor, log logger.Logger) Backend {
	return &whisperCPPBackend{opts: opts, executor: exec, logger: log}
}

func (b *whisperCPPBackend) Name() string { return "whisper.cpp" }

func (b *whisperCPPBackend) Text(ctx context.Context, track models.AudioTrack) (string, error) {
	data, err := b.run(ctx, track, "-otxt", ".txt")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type whisperJSON struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (b *whisperCPPBackend) Segments(ctx context.Context, track models.AudioTrack) ([]models.Segment, error) {
	data, err := b.run(ctx, track, "-oj", ".json")
	if err != nil {
		return nil, err
	}

	var parsed whisperJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &TranscriptionError{Reason: ReasonBadResponse, Err: fmt.Errorf("decode whisper json: %w", err)}
	}

	segments := make([]models.Segment, 0, len(parsed.Transcription))
	for _, s := range parsed.Transcription {
		segments = append(segments, models.Segment{
			Start: time.Duration(s.Offsets.From) * time.Millisecond,
			End:   time.Duration(s.Offsets.To) * time.Millisecond,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return segments, nil
}

func (b *whisperCPPBackend) SRT(ctx context.Context, track models.AudioTrack) (string, error) {
	data, err := b.run(ctx, track, "-osrt", ".srt")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// run invokes whisper-cli with one output flag and reads back the produced file.
// Each view writes to its own prefix so concurrent views never share a file.
func (b *whisperCPPBackend) run(ctx context.Context, track models.AudioTrack, outputFlag, ext string) ([]byte, error) {
	dir := filepath.Dir(track.Path)
	prefix := filepath.Join(dir, strings.TrimSuffix(filepath.Base(track.Path), filepath.Ext(track.Path))+"_"+strings.TrimPrefix(ext, "."))

	args := []string{
		"-m", b.opts.ModelPath,
		"-f", track.Path,
		outputFlag,
		"-t", strconv.Itoa(b.opts.Threads),
		"--output-file", prefix,
	}
	if b.opts.Language != "" {
		args = append(args, "-l", b.opts.Language)
	}
	if b.opts.Prompt != "" {
		args = append(args, "--prompt", b.opts.Prompt)
	}

	b.logger.Debug(ctx, "whisper-cli %s -> %s%s", track.Path, prefix, ext)
	if _, err := b.executor.ExecuteInDir(ctx, dir, b.opts.BinaryPath, args...); err != nil {
		return nil, fmt.Errorf("whisper transcribe: %w", err)
	}

	outPath := prefix + ext
	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	os.Remove(outPath)

	return data, nil
}
