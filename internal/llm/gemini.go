package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiOptions configures the Gemini client. Keys are rotated when one hits its quota.
type GeminiOptions struct {
	APIKeys     []string
	Model       string
	Temperature float64
	Timeout     time.Duration
	Limiter     *rate.Limiter
}

type generateFunc func(ctx context.Context, key, system, user string) (string, error)

type implGemini struct {
	opts     GeminiOptions
	logger   logger.Logger
	generate generateFunc

	mu         sync.Mutex
	currentKey int
	clients    map[string]*genai.Client
}

// NewGemini creates a Client that rotates through the supplied Gemini API keys
func NewGemini(opts GeminiOptions, log logger.Logger) (Client, error) {
	if len(opts.APIKeys) == 0 {
		return nil, errors.New("at least one Gemini API key is required")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}

	g := &implGemini{
		opts:    opts,
		logger:  log,
		clients: make(map[string]*genai.Client),
	}
	g.generate = g.generateContent
	return g, nil
}

func (g *implGemini) Name() string { return "gemini:" + g.opts.Model }

// Complete sends the prompt, moving on to the next key on 429 / quota errors.
// Each key is tried at most once per call.
func (g *implGemini) Complete(ctx context.Context, system, user string) (string, error) {
	if g.opts.Limiter != nil {
		if err := g.opts.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for rate limiter: %w", err)
		}
	}
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	var lastErr error
	for range len(g.opts.APIKeys) {
		idx, key := g.key()

		text, err := g.generate(ctx, key, system, user)
		if err == nil {
			return text, nil
		}
		if !isQuotaError(err) {
			return "", fmt.Errorf("generate content: %w", err)
		}

		g.logger.Warn(ctx, "Gemini key %d rate limited, rotating...", idx+1)
		g.rotateKey(idx)
		lastErr = err
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (g *implGemini) generateContent(ctx context.Context, key, system, user string) (string, error) {
	client, err := g.client(ctx, key)
	if err != nil {
		return "", err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if g.opts.Temperature > 0 {
		t := float32(g.opts.Temperature)
		cfg.Temperature = &t
	}

	result, err := client.Models.GenerateContent(ctx, g.opts.Model, genai.Text(user), cfg)
	if err != nil {
		return "", err
	}

	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		var text string
		for _, part := range result.Candidates[0].Content.Parts {
			if part.Text != "" {
				text += part.Text
			}
		}
		return text, nil
	}

	return "", errors.New("empty response from Gemini")
}

func (g *implGemini) client(ctx context.Context, key string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	g.clients[key] = c
	return c, nil
}

func (g *implGemini) key() (int, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentKey, g.opts.APIKeys[g.currentKey]
}

// rotateKey advances past idx unless another caller already did
func (g *implGemini) rotateKey(idx int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.currentKey == idx {
		g.currentKey = (g.currentKey + 1) % len(g.opts.APIKeys)
	}
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
