package export

import (
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
)

type implExporter struct {
	logger logger.Logger
}

// New creates an Exporter
func New(log logger.Logger) Exporter {
	return &implExporter{logger: log}
}
