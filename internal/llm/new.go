package llm

import (
	"fmt"

	"github.com/nguyentantai21042004/audio-reader/internal/config"
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"golang.org/x/time/rate"
)

// New builds the client selected by generation.provider
func New(cfg *config.Config, log logger.Logger) (Client, error) {
	gc := cfg.Generation
	limiter := newLimiter(cfg.Performance.RequestsPerSecond)

	switch gc.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(OpenAIOptions{
			APIKey:      gc.APIKey,
			BaseURL:     gc.BaseURL,
			Model:       gc.Model,
			Temperature: gc.Temperature,
			Timeout:     gc.Timeout,
			Limiter:     limiter,
		}), nil
	case config.ProviderGemini:
		return NewGemini(GeminiOptions{
			APIKeys:     gc.APIKeys,
			Model:       gc.Model,
			Temperature: gc.Temperature,
			Timeout:     gc.Timeout,
			Limiter:     limiter,
		}, log)
	}
	return nil, fmt.Errorf("unsupported generation provider %q", gc.Provider)
}

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
