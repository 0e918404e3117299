package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/nguyentantai21042004/audio-reader/internal/config"
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type implPublisher struct {
	service    *youtube.Service
	categoryID string
	logger     logger.Logger
}

// New authenticates with the refresh token in cfg and creates a Publisher
func New(ctx context.Context, cfg config.YouTubeConfig, log logger.Logger) (Publisher, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("youtube client id, client secret and refresh token are required")
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}

	return NewWithService(svc, cfg.CategoryID, log), nil
}

// NewWithService wraps an already configured YouTube service
func NewWithService(svc *youtube.Service, categoryID string, log logger.Logger) Publisher {
	return &implPublisher{
		service:    svc,
		categoryID: categoryID,
		logger:     log,
	}
}
