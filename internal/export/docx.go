package export

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"github.com/nguyentantai21042004/audio-reader/internal/models"
	"github.com/nguyentantai21042004/audio-reader/internal/pipeline"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

var (
	reHeading  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBold     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet   = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
	reSrtTime  = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}`)
	reSrtIndex = regexp.MustCompile(`^\d+$`)
)

// WriteReport renders title, summary, topics, clip descriptions, the YouTube
// description and the transcript. Sections without data are left out.
func (e *implExporter) WriteReport(ctx context.Context, snap pipeline.Snapshot, title, path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	addStyledRun(doc.AddParagraph(""), title, true, 16)

	primary := snap.Slot(models.SlotPrimary)
	if primary.Summary != nil {
		addSection(doc, "Summary")
		addMarkdown(doc, primary.Summary.Content)
	}

	if primary.Topics != nil && len(primary.Topics.Topics) > 0 {
		addSection(doc, "Key topics")
		for i, topic := range primary.Topics.Topics {
			addRichText(doc.AddParagraph(""), fmt.Sprintf("%d. %s", i+1, topic))
		}
	}

	var described bool
	for _, slot := range models.ClipSlots {
		d := snap.Slot(slot).Description
		if d == nil {
			continue
		}
		if !described {
			addSection(doc, "Clip descriptions")
			described = true
		}
		addStyledRun(doc.AddParagraph(""), fmt.Sprintf("Clip %d", slot.ClipIndex()), true, fontSize)
		addMarkdown(doc, d.Content)
	}

	if snap.YouTubeDescription != nil {
		addSection(doc, "YouTube description")
		addMarkdown(doc, snap.YouTubeDescription.Content)
	}

	if lines := transcriptLines(primary.Transcripts); len(lines) > 0 {
		addSection(doc, "Transcript")
		for _, line := range lines {
			doc.AddParagraph("").AddText(line).Font(fontName).Size(fontSize).Color("000000")
		}
	}

	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	e.logger.Info(ctx, "Report written: %s", path)
	return nil
}

// transcriptLines prefers the subtitle view, then timestamped, then plain
func transcriptLines(transcripts map[models.View]models.Transcript) []string {
	if t, ok := transcripts[models.ViewSubtitle]; ok {
		return srtDialogue(t.Text)
	}
	if t, ok := transcripts[models.ViewTimestamped]; ok {
		return nonEmptyLines(t.Text)
	}
	if t, ok := transcripts[models.ViewPlain]; ok {
		return nonEmptyLines(t.Text)
	}
	return nil
}

// srtDialogue strips sequence numbers and timestamps, keeping only dialogue text.
// Consecutive repeats produced by overlapping cues are dropped.
func srtDialogue(srt string) []string {
	var out []string
	for _, line := range strings.Split(srt, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || reSrtIndex.MatchString(trimmed) || reSrtTime.MatchString(trimmed) {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == trimmed {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func addSection(doc *docx.RootDoc, heading string) {
	doc.AddParagraph("")
	addStyledRun(doc.AddParagraph(""), heading, true, 15)
}

// addMarkdown renders the light markdown LLMs tend to return
func addMarkdown(doc *docx.RootDoc, markdown string) {
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			addStyledRun(doc.AddParagraph(""), m[2], true, headingSize(len(m[1])))
			continue
		}
		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			addRichText(doc.AddParagraph(""), "• "+m[1])
			continue
		}
		addRichText(doc.AddParagraph(""), trimmed)
	}
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 15
	case 3:
		return 14
	default:
		return fontSize
	}
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	text = cleanMarkdownInline(text)
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	for i, part := range parts {
		if part != "" {
			p.AddText(cleanMarkdownInline(part)).Font(fontName).Size(fontSize).Color("000000")
		}
		if i < len(matches) {
			p.AddText(cleanMarkdownInline(matches[i][1])).Font(fontName).Size(fontSize).Color("000000").Bold(true)
		}
	}
}

func cleanMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}
