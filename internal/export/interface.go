package export

import (
	"context"

	"github.com/nguyentantai21042004/audio-reader/internal/pipeline"
)

// Exporter writes a session's artifacts to disk.
type Exporter interface {
	// WriteArtifacts writes one text file per available artifact into dir and returns their paths.
	WriteArtifacts(ctx context.Context, snap pipeline.Snapshot, dir string) ([]string, error)
	// WriteReport renders every available artifact into a single .docx document.
	WriteReport(ctx context.Context, snap pipeline.Snapshot, title, path string) error
}
