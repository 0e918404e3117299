package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"github.com/nguyentantai21042004/audio-reader/internal/models"
	"golang.org/x/sync/errgroup"
)

// ReportFile is the name of the .docx written next to the text artifacts.
const ReportFile = "report.docx"

// companion clips sit next to the primary video as "<stem>.clip<N>.<ext>"
var clipPattern = regexp.MustCompile(`^(.+)\.clip([1-3])$`)

// Process binds videoPath and its companion clips to a fresh session, runs
// every stage, exports the artifacts and archives the inputs.
func (p *implProcessor) Process(ctx context.Context, videoPath string) error {
	startTime := time.Now()
	stem, clipIndex := splitName(filepath.Base(videoPath))
	if clipIndex > 0 {
		p.logger.Debug(ctx, "Skipping companion clip %s, it is picked up with its primary video", videoPath)
		return nil
	}

	// Step 1: Open a session for this video
	s, err := p.registry.Create(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	ctx = logger.WithSession(ctx, s.ID())
	defer func() {
		if err := p.registry.Close(context.WithoutCancel(ctx), s.ID()); err != nil {
			p.logger.Warn(ctx, "Failed to close session: %v", err)
		}
	}()

	p.logger.Info(ctx, "Starting video processing: %s", videoPath)

	// Step 2: Bind the primary video and any companion clips
	inputs := map[models.Slot]string{models.SlotPrimary: videoPath}
	for slot, path := range p.findClips(filepath.Dir(videoPath), stem) {
		inputs[slot] = path
	}
	for _, slot := range models.AllSlots {
		path, ok := inputs[slot]
		if !ok {
			continue
		}
		if err := bindFile(ctx, s, slot, path); err != nil {
			return fmt.Errorf("bind %s: %w", slot.Name(), err)
		}
	}

	// Step 3: Run every unit, then the aggregate
	report, err := s.ProcessAll(ctx)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}
	var failures []error
	for _, u := range report.Units {
		if !u.OK() {
			p.logger.Warn(ctx, "Unit %s failed: %v", u.Slot, u.Err())
			failures = append(failures, u.Err())
		}
	}
	if err := report.AggregateErr(); err != nil {
		p.logger.Warn(ctx, "YouTube description failed: %v", err)
		failures = append(failures, err)
	}

	// Step 4: Export whatever was produced
	snap, err := s.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	outDir := filepath.Join(p.paths.Output, stem)
	written, err := p.exporter.WriteArtifacts(ctx, snap, outDir)
	if err != nil {
		return fmt.Errorf("export artifacts: %w", err)
	}
	if err := p.exporter.WriteReport(ctx, snap, stem, filepath.Join(outDir, ReportFile)); err != nil {
		return fmt.Errorf("export report: %w", err)
	}

	// Step 5: Move the inputs out of the watched folder
	for _, slot := range models.AllSlots {
		if path, ok := inputs[slot]; ok {
			if err := p.moveToArchived(ctx, path); err != nil {
				p.logger.Warn(ctx, "Failed to move %s to archived folder: %v", path, err)
			}
		}
	}

	p.logger.Info(ctx, "Processing finished in %s: %d artifacts in %s", time.Since(startTime), len(written)+1, outDir)
	if len(failures) > 0 {
		return fmt.Errorf("%d stage failures: %w", len(failures), errors.Join(failures...))
	}
	return nil
}

// ProcessExisting drains the backlog in dir, at most maxConcurrent videos at once
func (p *implProcessor) ProcessExisting(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read input dir: %w", err)
	}

	var videos []string
	for _, e := range entries {
		if e.IsDir() || !p.allowed[models.ContainerOf(e.Name())] {
			continue
		}
		if _, clip := splitName(e.Name()); clip > 0 {
			continue
		}
		videos = append(videos, filepath.Join(dir, e.Name()))
	}
	if len(videos) == 0 {
		return nil
	}
	p.logger.Info(ctx, "Found %d videos waiting in %s", len(videos), dir)

	limit := p.maxConcurrent
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, path := range videos {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := p.Process(gctx, path); err != nil {
				p.logger.Error(gctx, "Failed to process %s: %v", path, err)
			}
			return nil
		})
	}
	g.Wait()
	return ctx.Err()
}

// splitName returns the file stem and, for companion clips, the clip index.
func splitName(name string) (string, int) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if m := clipPattern.FindStringSubmatch(stem); m != nil {
		n, _ := strconv.Atoi(m[2])
		return m[1], n
	}
	return stem, 0
}

func (p *implProcessor) findClips(dir, stem string) map[models.Slot]string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	clips := make(map[models.Slot]string)
	for _, e := range entries {
		if e.IsDir() || !p.allowed[models.ContainerOf(e.Name())] {
			continue
		}
		clipStem, idx := splitName(e.Name())
		if idx == 0 || clipStem != stem {
			continue
		}
		slot, err := models.ClipSlot(idx)
		if err != nil {
			continue
		}
		if _, dup := clips[slot]; !dup {
			clips[slot] = filepath.Join(dir, e.Name())
		}
	}
	return clips
}
