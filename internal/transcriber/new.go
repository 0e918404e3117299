package transcriber

import (
	"fmt"
	"net/http"

	"github.com/nguyentantai21042004/audio-reader/internal/config"
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"github.com/nguyentantai21042004/audio-reader/pkg/executor"
	"golang.org/x/time/rate"
)

type implTranscriber struct {
	backend Backend
	logger  logger.Logger
}

// New wraps backend with view formatting and error normalization
func New(backend Backend, log logger.Logger) Transcriber {
	return &implTranscriber{
		backend: backend,
		logger:  log,
	}
}

// NewBackend builds the backend selected by transcription.engine
func NewBackend(cfg *config.Config, exec executor.Executor, log logger.Logger) (Backend, error) {
	tc := cfg.Transcription
	switch tc.Engine {
	case config.EngineOpenAI:
		return NewOpenAI(OpenAIOptions{
			BaseURL:  tc.BaseURL,
			APIKey:   tc.APIKey,
			Model:    tc.Model,
			Language: tc.Language,
			Client:   &http.Client{Timeout: tc.Timeout},
			Limiter:  newLimiter(cfg.Performance.RequestsPerSecond),
		}), nil
	case config.EngineWhisperCPP:
		return NewWhisperCPP(WhisperCPPOptions{
			BinaryPath: tc.Whisper.BinaryPath,
			ModelPath:  tc.Whisper.ModelPath,
			Threads:    tc.Whisper.Threads,
			Language:   tc.Language,
			Prompt:     tc.Whisper.Prompt,
		}, exec, log), nil
	}
	return nil, fmt.Errorf("unsupported transcription engine %q", tc.Engine)
}

// newLimiter returns nil when throttling is disabled
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
