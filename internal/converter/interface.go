package converter

import (
	"context"

	"github.com/nguyentantai21042004/audio-reader/internal/models"
)

// Converter extracts the audio track from a video asset.
type Converter interface {
	// Convert writes the audio of asset into outDir and describes the result.
	// The caller owns outDir and its cleanup.
	Convert(ctx context.Context, asset models.MediaAsset, target models.AudioFormat, outDir string) (models.AudioTrack, error)
}
