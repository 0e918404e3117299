package publish

import (
	"context"
	"fmt"

	"google.golang.org/api/youtube/v3"
)

func (p *implPublisher) UpdateDescription(ctx context.Context, videoID, description string) (string, error) {
	// Step 1: Fetch the current snippet, the update replaces it as a whole
	resp, err := p.service.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list video: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return "", fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}

	// Step 2: Swap the description; categoryId is mandatory on update
	snippet := resp.Items[0].Snippet
	snippet.Description = description
	if snippet.CategoryId == "" {
		snippet.CategoryId = p.categoryID
	}

	video := &youtube.Video{Id: videoID, Snippet: snippet}
	if _, err := p.service.Videos.Update([]string{"snippet"}, video).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update video: %w", err)
	}

	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	p.logger.Info(ctx, "Updated YouTube description: %s", url)
	return url, nil
}
