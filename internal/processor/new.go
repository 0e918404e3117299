package processor

import (
	"strings"

	"github.com/nguyentantai21042004/audio-reader/internal/config"
	"github.com/nguyentantai21042004/audio-reader/internal/export"
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"github.com/nguyentantai21042004/audio-reader/internal/pipeline"
)

type implProcessor struct {
	paths         config.PathsConfig
	maxConcurrent int
	allowed       map[string]bool
	registry      *pipeline.Registry
	exporter      export.Exporter
	logger        logger.Logger
}

// New creates a new Processor instance
func New(cfg *config.Config, registry *pipeline.Registry, exporter export.Exporter, log logger.Logger) Processor {
	allowed := make(map[string]bool, len(cfg.Media.AllowedContainers))
	for _, c := range cfg.Media.AllowedContainers {
		allowed[strings.ToLower(strings.TrimPrefix(c, "."))] = true
	}
	return &implProcessor{
		paths:         cfg.Paths,
		maxConcurrent: cfg.Performance.MaxConcurrent,
		allowed:       allowed,
		registry:      registry,
		exporter:      exporter,
		logger:        log,
	}
}
