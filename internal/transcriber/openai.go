package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nguyentantai21042004/audio-reader/internal/models"
	"golang.org/x/time/rate"
)

const (
	formatText        = "text"
	formatVerboseJSON = "verbose_json"
	formatSRT         = "srt"

	maxErrorBody = 2048
)

// OpenAIOptions configures the hosted /audio/transcriptions backend.
type OpenAIOptions struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Client   *http.Client
	Limiter  *rate.Limiter
}

type openAIBackend struct {
	opts OpenAIOptions
}

// NewOpenAI creates a Backend for an OpenAI-compatible transcription endpoint
func NewOpenAI(opts OpenAIOptions) Backend {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &openAIBackend{opts: opts}
}

func (b *openAIBackend) Name() string { return "openai:" + b.opts.Model }

func (b *openAIBackend) Text(ctx context.Context, track models.AudioTrack) (string, error) {
	body, err := b.transcribe(ctx, track, formatText)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type verboseResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (b *openAIBackend) Segments(ctx context.Context, track models.AudioTrack) ([]models.Segment, error) {
	body, err := b.transcribe(ctx, track, formatVerboseJSON)
	if err != nil {
		return nil, err
	}

	var resp verboseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TranscriptionError{Reason: ReasonBadResponse, Err: fmt.Errorf("decode verbose_json: %w", err)}
	}

	segments := make([]models.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, models.Segment{
			Start: secondsToDuration(s.Start),
			End:   secondsToDuration(s.End),
			Text:  s.Text,
		})
	}
	return segments, nil
}

func (b *openAIBackend) SRT(ctx context.Context, track models.AudioTrack) (string, error) {
	body, err := b.transcribe(ctx, track, formatSRT)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// transcribe uploads the track once and returns the raw response body
func (b *openAIBackend) transcribe(ctx context.Context, track models.AudioTrack, responseFormat string) ([]byte, error) {
	if b.opts.Limiter != nil {
		if err := b.opts.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	payload, contentType, err := b.buildForm(track, responseFormat)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opts.BaseURL+"/audio/transcriptions", payload)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+b.opts.APIKey)

	resp, err := b.opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	return body, nil
}

func (b *openAIBackend) buildForm(track models.AudioTrack, responseFormat string) (*bytes.Buffer, string, error) {
	f, err := os.Open(track.Path)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(track.Path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy audio: %w", err)
	}

	fields := map[string]string{
		"model":           b.opts.Model,
		"response_format": responseFormat,
	}
	if b.opts.Language != "" {
		fields["language"] = b.opts.Language
	}
	if responseFormat == formatVerboseJSON {
		fields["timestamp_granularities[]"] = "segment"
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
