package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nguyentantai21042004/audio-reader/internal/models"
	"github.com/nguyentantai21042004/audio-reader/internal/pipeline"
)

const YouTubeDescriptionFile = "youtube_description.txt"

// ClipDescriptionFile names the export of a clip's description
func ClipDescriptionFile(slot models.Slot) string {
	return fmt.Sprintf("clip%d_description.txt", slot.ClipIndex())
}

type artifact struct {
	name    string
	content string
}

// artifacts lists what is present in snap, in a stable order
func artifacts(snap pipeline.Snapshot) []artifact {
	var out []artifact

	primary := snap.Slot(models.SlotPrimary)
	for _, view := range models.AllViews {
		if t, ok := primary.Transcripts[view]; ok {
			out = append(out, artifact{name: view.FileName(), content: t.Text})
		}
	}
	if primary.Summary != nil {
		out = append(out, artifact{name: "summary.txt", content: primary.Summary.Text()})
	}
	if primary.Topics != nil {
		out = append(out, artifact{name: "topics.txt", content: primary.Topics.Text()})
	}

	for _, slot := range models.ClipSlots {
		if d := snap.Slot(slot).Description; d != nil {
			out = append(out, artifact{name: ClipDescriptionFile(slot), content: d.Text()})
		}
	}

	if snap.YouTubeDescription != nil {
		out = append(out, artifact{name: YouTubeDescriptionFile, content: snap.YouTubeDescription.Text()})
	}
	return out
}

func (e *implExporter) WriteArtifacts(ctx context.Context, snap pipeline.Snapshot, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	var written []string
	for _, a := range artifacts(snap) {
		path := filepath.Join(dir, a.name)
		if err := os.WriteFile(path, []byte(a.content), 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", a.name, err)
		}
		written = append(written, path)
	}

	e.logger.Info(ctx, "Exported %d artifacts to %s", len(written), dir)
	return written, nil
}
