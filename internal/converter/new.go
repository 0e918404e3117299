package converter

import (
	"strings"

	"github.com/nguyentantai21042004/audio-reader/internal/config"
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"github.com/nguyentantai21042004/audio-reader/pkg/executor"
)

type implConverter struct {
	ffmpeg   string
	ffprobe  string
	allowed  map[string]bool
	executor executor.Executor
	logger   logger.Logger
}

// New creates a Converter backed by the ffmpeg/ffprobe binaries in cfg
func New(cfg *config.Config, exec executor.Executor, log logger.Logger) Converter {
	allowed := make(map[string]bool, len(cfg.Media.AllowedContainers))
	for _, c := range cfg.Media.AllowedContainers {
		allowed[strings.ToLower(strings.TrimPrefix(c, "."))] = true
	}

	return &implConverter{
		ffmpeg:   cfg.FFmpeg.BinaryPath,
		ffprobe:  cfg.FFmpeg.ProbePath,
		allowed:  allowed,
		executor: exec,
		logger:   log,
	}
}
