package derive

import (
	"github.com/nguyentantai21042004/audio-reader/internal/llm"
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
)

type implDeriver struct {
	client llm.Client
	logger logger.Logger
}

// New creates a Deriver on top of a text-generation client
func New(client llm.Client, log logger.Logger) Deriver {
	return &implDeriver{
		client: client,
		logger: log,
	}
}
