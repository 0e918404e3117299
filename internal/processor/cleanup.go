package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nguyentantai21042004/audio-reader/internal/models"
	"github.com/nguyentantai21042004/audio-reader/internal/pipeline"
)

// bindFile streams path into slot
func bindFile(ctx context.Context, s *pipeline.Session, slot models.Slot, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	_, err = s.Bind(ctx, slot, filepath.Base(path), f)
	return err
}

// moveToArchived moves a processed input into the archived folder, never
// overwriting an earlier file of the same name
func (p *implProcessor) moveToArchived(ctx context.Context, path string) error {
	if err := os.MkdirAll(p.paths.Archived, 0755); err != nil {
		return fmt.Errorf("create archived dir: %w", err)
	}

	filename := filepath.Base(path)
	destPath := filepath.Join(p.paths.Archived, filename)
	if _, err := os.Stat(destPath); err == nil {
		ext := filepath.Ext(filename)
		destPath = filepath.Join(p.paths.Archived,
			fmt.Sprintf("%s-%s%s", strings.TrimSuffix(filename, ext), time.Now().Format("20060102-150405"), ext))
	}

	p.logger.Info(ctx, "Moving to archived folder: %s -> %s", path, destPath)

	if err := os.Rename(path, destPath); err == nil {
		return nil
	}
	// Rename fails across filesystems; fall back to copy and remove
	if err := copyFile(path, destPath); err != nil {
		return fmt.Errorf("move to archived: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove original: %w", err)
	}
	return nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("write destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("write destination: %w", err)
	}
	return out.Close()
}
