package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxUploadBytes is the upload size bound enforced by the presentation layer.
	DefaultMaxUploadBytes int64 = 200 * 1024 * 1024

	EngineOpenAI     = "openai"
	EngineWhisperCPP = "whisper_cpp"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	FFmpeg        FFmpegConfig        `yaml:"ffmpeg"`
	Media         MediaConfig         `yaml:"media"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Generation    GenerationConfig    `yaml:"generation"`
	Paths         PathsConfig         `yaml:"paths"`
	Server        ServerConfig        `yaml:"server"`
	Watcher       WatcherConfig       `yaml:"watcher"`
	Logging       LoggingConfig       `yaml:"logging"`
	Performance   PerformanceConfig   `yaml:"performance"`
	YouTube       YouTubeConfig       `yaml:"youtube"`
}

type FFmpegConfig struct {
	BinaryPath  string `yaml:"binary_path"`
	ProbePath   string `yaml:"probe_path"`
	LegacyVideo bool   `yaml:"legacy_video"`
}

type MediaConfig struct {
	MaxUploadBytes    int64    `yaml:"max_upload_bytes"`
	AllowedContainers []string `yaml:"allowed_containers"`
}

type TranscriptionConfig struct {
	Engine   string        `yaml:"engine"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
	Whisper  WhisperConfig `yaml:"whisper"`

	// APIKey is read from the environment, never from the file.
	APIKey string `yaml:"-"`
}

type WhisperConfig struct {
	ModelPath  string `yaml:"model_path"`
	BinaryPath string `yaml:"binary_path"`
	Threads    int    `yaml:"threads"`
	Prompt     string `yaml:"prompt"`
}

type GenerationConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`

	APIKey  string   `yaml:"-"`
	APIKeys []string `yaml:"-"`
}

type PathsConfig struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	Archived string `yaml:"archived"`
	Temp     string `yaml:"temp"`
}

type ServerConfig struct {
	Addr       string        `yaml:"addr"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type WatcherConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PerformanceConfig struct {
	MaxConcurrent     int           `yaml:"max_concurrent"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	StageTimeout      time.Duration `yaml:"stage_timeout"`
}

type YouTubeConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CategoryID string `yaml:"category_id"`

	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
	RefreshToken string `yaml:"-"`
}

// Load reads the YAML config at path, merges secrets from the environment and validates it
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Transcription.APIKey = os.Getenv("OPENAI_API_KEY")
	c.Generation.APIKey = os.Getenv("OPENAI_API_KEY")
	c.Generation.APIKeys = splitList(os.Getenv("GEMINI_API_KEYS"))
	c.YouTube.ClientID = os.Getenv("YOUTUBE_CLIENT_ID")
	c.YouTube.ClientSecret = os.Getenv("YOUTUBE_CLIENT_SECRET")
	c.YouTube.RefreshToken = os.Getenv("YOUTUBE_REFRESH_TOKEN")
}

func (c *Config) Validate() error {
	if c.Paths.Output == "" {
		return fmt.Errorf("paths.output is required")
	}
	if c.Watcher.Enabled && c.Paths.Input == "" {
		return fmt.Errorf("paths.input is required when watcher is enabled")
	}

	if c.Transcription.Engine == "" {
		c.Transcription.Engine = EngineOpenAI
	}
	switch c.Transcription.Engine {
	case EngineOpenAI:
		if c.Transcription.Model == "" {
			c.Transcription.Model = "whisper-1"
		}
		if c.Transcription.BaseURL == "" {
			c.Transcription.BaseURL = "https://api.openai.com/v1"
		}
	case EngineWhisperCPP:
		if c.Transcription.Whisper.ModelPath == "" {
			return fmt.Errorf("transcription.whisper.model_path is required")
		}
		if c.Transcription.Whisper.BinaryPath == "" {
			c.Transcription.Whisper.BinaryPath = "whisper-cli"
		}
		if c.Transcription.Whisper.Threads == 0 {
			c.Transcription.Whisper.Threads = 8
		}
	default:
		return fmt.Errorf("transcription.engine %q is not supported", c.Transcription.Engine)
	}

	if c.Generation.Provider == "" {
		c.Generation.Provider = ProviderOpenAI
	}
	switch c.Generation.Provider {
	case ProviderOpenAI:
		if c.Generation.Model == "" {
			c.Generation.Model = "gpt-3.5-turbo"
		}
	case ProviderGemini:
		if c.Generation.Model == "" {
			c.Generation.Model = "gemini-2.5-flash"
		}
	default:
		return fmt.Errorf("generation.provider %q is not supported", c.Generation.Provider)
	}

	if c.FFmpeg.BinaryPath == "" {
		c.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.FFmpeg.ProbePath == "" {
		c.FFmpeg.ProbePath = "ffprobe"
	}
	if c.Media.MaxUploadBytes == 0 {
		c.Media.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(c.Media.AllowedContainers) == 0 {
		c.Media.AllowedContainers = []string{"mp4", "mov"}
	}
	if c.Transcription.Timeout == 0 {
		c.Transcription.Timeout = 10 * time.Minute
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 2 * time.Minute
	}
	if c.Paths.Archived == "" {
		c.Paths.Archived = "data/archived"
	}
	if c.Paths.Temp == "" {
		c.Paths.Temp = "data/temp"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = 2 * time.Hour
	}
	if c.Performance.MaxConcurrent == 0 {
		c.Performance.MaxConcurrent = 4
	}
	if c.Performance.StageTimeout == 0 {
		c.Performance.StageTimeout = 30 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.YouTube.CategoryID == "" {
		c.YouTube.CategoryID = "22"
	}

	return nil
}

// ValidateSecrets checks that the selected engines have credentials.
// Kept separate from Validate so config files can be checked without a populated environment.
func (c *Config) ValidateSecrets() error {
	if c.Transcription.Engine == EngineOpenAI && c.Transcription.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the openai transcription engine")
	}
	switch c.Generation.Provider {
	case ProviderOpenAI:
		if c.Generation.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai generation provider")
		}
	case ProviderGemini:
		if len(c.Generation.APIKeys) == 0 {
			return fmt.Errorf("GEMINI_API_KEYS is required for the gemini generation provider")
		}
	}
	if c.YouTube.Enabled && (c.YouTube.ClientID == "" || c.YouTube.ClientSecret == "" || c.YouTube.RefreshToken == "") {
		return fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN are required when youtube is enabled")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
