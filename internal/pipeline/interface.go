package pipeline

import (
	"time"

	"github.com/nguyentantai21042004/audio-reader/internal/converter"
	"github.com/nguyentantai21042004/audio-reader/internal/derive"
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"github.com/nguyentantai21042004/audio-reader/internal/metrics"
	"github.com/nguyentantai21042004/audio-reader/internal/transcriber"
)

// Deps are the stage components a session drives.
type Deps struct {
	Converter   converter.Converter
	Transcriber transcriber.Transcriber
	Deriver     derive.Deriver
	Logger      logger.Logger
	Metrics     *metrics.Metrics
}

// Options tune a session's conversion policy and fan-out.
type Options struct {
	// LegacyVideo converts the primary video to lossless WAV instead of MP3.
	LegacyVideo bool
	// MaxConcurrent bounds ProcessAll's parallel slots.
	MaxConcurrent int
	// StageTimeout bounds one external call; zero means defaultStageTimeout.
	StageTimeout time.Duration
	// TranscriptionService and GenerationService label external-call metrics.
	TranscriptionService string
	GenerationService    string
}

const (
	serviceFFmpeg = "ffmpeg"

	defaultStageTimeout = 30 * time.Minute
)
