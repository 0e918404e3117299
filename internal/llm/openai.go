package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// OpenAIOptions configures the chat completions client.
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	Limiter     *rate.Limiter
}

type implOpenAI struct {
	client  openai.Client
	opts    OpenAIOptions
	limiter *rate.Limiter
}

// NewOpenAI creates a Client for OpenAI-compatible chat completions
func NewOpenAI(opts OpenAIOptions) Client {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		// a failed stage is retried by invoking it again, not by the SDK
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.Timeout))
	}

	return &implOpenAI{
		client:  openai.NewClient(clientOpts...),
		opts:    opts,
		limiter: opts.Limiter,
	}
}

func (c *implOpenAI) Name() string { return "openai:" + c.opts.Model }

func (c *implOpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model: c.opts.Model,
	}
	if c.opts.Temperature > 0 {
		params.Temperature = openai.Float(c.opts.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
