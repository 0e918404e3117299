package derive

import (
	"context"
	"strings"

	"github.com/nguyentantai21042004/audio-reader/internal/models"
)

// Summary asks for a 3-4 sentence summary of the plain transcript
func (d *implDeriver) Summary(ctx context.Context, transcript string) (models.DerivedText, error) {
	out, err := d.complete(ctx, models.DerivedSummary, summaryPrompt, transcript)
	if err != nil {
		return models.DerivedText{}, err
	}
	return models.DerivedText{Kind: models.DerivedSummary, Content: strings.TrimSpace(out)}, nil
}

// Topics asks for 5 key topics and de-numbers the answer with CleanTopics
func (d *implDeriver) Topics(ctx context.Context, transcript string) (models.DerivedText, error) {
	out, err := d.complete(ctx, models.DerivedTopics, topicsPrompt, transcript)
	if err != nil {
		return models.DerivedText{}, err
	}

	topics := CleanTopics(out)
	if len(topics) == 0 {
		return models.DerivedText{}, &GenerationError{Kind: string(models.DerivedTopics), Reason: ReasonMalformed}
	}
	return models.DerivedText{Kind: models.DerivedTopics, Topics: topics}, nil
}

// ClipDescription returns the description and hashtags exactly as generated
func (d *implDeriver) ClipDescription(ctx context.Context, transcript string) (models.DerivedText, error) {
	out, err := d.complete(ctx, models.DerivedClipDescription, clipDescriptionPrompt, transcript)
	if err != nil {
		return models.DerivedText{}, err
	}
	return models.DerivedText{Kind: models.DerivedClipDescription, Content: out}, nil
}

func (d *implDeriver) YouTubeDescription(ctx context.Context, body string) (models.DerivedText, error) {
	out, err := d.complete(ctx, models.DerivedYouTubeDescription, youtubeDescriptionPrompt, body)
	if err != nil {
		return models.DerivedText{}, err
	}
	return models.DerivedText{Kind: models.DerivedYouTubeDescription, Content: out}, nil
}

func (d *implDeriver) complete(ctx context.Context, kind models.DerivedKind, system, user string) (string, error) {
	d.logger.Debug(ctx, "Generating %s with %s (%d chars of input)", kind, d.client.Name(), len(user))

	out, err := d.client.Complete(ctx, system, user)
	if err != nil {
		return "", &GenerationError{Kind: string(kind), Reason: ReasonService, Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return "", &GenerationError{Kind: string(kind), Reason: ReasonEmpty}
	}
	return out, nil
}

// CleanTopics splits a completion into at most MaxTopics topics.
// Blank lines are dropped; a line containing ". " keeps only what follows
// its first occurrence. Lines with ". " inside the topic itself lose their
// head too; callers rely on this exact behaviour.
func CleanTopics(raw string) []string {
	var topics []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, after, found := strings.Cut(line, ". "); found {
			line = after
		}
		topics = append(topics, line)
	}

	if len(topics) > models.MaxTopics {
		topics = topics[:models.MaxTopics]
	}
	return topics
}

// BuildAggregateBody joins the available clip descriptions with blank lines,
// skipping empty ones, and appends the newline-joined topics.
func BuildAggregateBody(clipDescriptions, topics []string) string {
	var descs []string
	for _, d := range clipDescriptions {
		if strings.TrimSpace(d) != "" {
			descs = append(descs, d)
		}
	}

	parts := make([]string, 0, 2)
	if len(descs) > 0 {
		parts = append(parts, strings.Join(descs, "\n\n"))
	}
	if len(topics) > 0 {
		parts = append(parts, strings.Join(topics, "\n"))
	}
	return strings.Join(parts, "\n\n")
}
