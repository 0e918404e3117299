package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nguyentantai21042004/audio-reader/internal/config"
	"github.com/nguyentantai21042004/audio-reader/internal/converter"
	"github.com/nguyentantai21042004/audio-reader/internal/derive"
	"github.com/nguyentantai21042004/audio-reader/internal/export"
	"github.com/nguyentantai21042004/audio-reader/internal/httpapi"
	"github.com/nguyentantai21042004/audio-reader/internal/llm"
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"github.com/nguyentantai21042004/audio-reader/internal/metrics"
	"github.com/nguyentantai21042004/audio-reader/internal/pipeline"
	"github.com/nguyentantai21042004/audio-reader/internal/processor"
	"github.com/nguyentantai21042004/audio-reader/internal/publish"
	"github.com/nguyentantai21042004/audio-reader/internal/transcriber"
	"github.com/nguyentantai21042004/audio-reader/internal/watcher"
	"github.com/nguyentantai21042004/audio-reader/pkg/executor"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	ctx := context.Background()

	// Secrets may come from a local .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateSecrets(); err != nil {
		fmt.Fprintf(os.Stderr, "Missing credentials: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	log.Info(ctx, "Audio Reader starting on %s/%s (%d CPUs)", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())

	// Verify required directories exist
	if err := ensureDirectories(cfg); err != nil {
		log.Error(ctx, "Failed to create directories: %v", err)
		os.Exit(1)
	}

	// Initialize dependencies
	exec := executor.New()
	backend, err := transcriber.NewBackend(cfg, exec, log)
	if err != nil {
		log.Error(ctx, "Failed to create transcription backend: %v", err)
		os.Exit(1)
	}
	client, err := llm.New(cfg, log)
	if err != nil {
		log.Error(ctx, "Failed to create generation client: %v", err)
		os.Exit(1)
	}

	m := metrics.New()
	registry := pipeline.NewRegistry(cfg.Paths.Temp, pipeline.Deps{
		Converter:   converter.New(cfg, exec, log),
		Transcriber: transcriber.New(backend, log),
		Deriver:     derive.New(client, log),
		Logger:      log,
		Metrics:     m,
	}, pipeline.Options{
		LegacyVideo:          cfg.FFmpeg.LegacyVideo,
		MaxConcurrent:        cfg.Performance.MaxConcurrent,
		StageTimeout:         cfg.Performance.StageTimeout,
		TranscriptionService: backend.Name(),
		GenerationService:    client.Name(),
	}, cfg.Server.SessionTTL)
	exporter := export.New(log)

	var publisher publish.Publisher
	if cfg.YouTube.Enabled {
		publisher, err = publish.New(ctx, cfg.YouTube, log)
		if err != nil {
			log.Error(ctx, "Failed to create YouTube publisher: %v", err)
			os.Exit(1)
		}
	}

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Idle sweeping outlives the signal so draining requests keep their sessions
	sweepCtx, stopSweep := context.WithCancel(context.WithoutCancel(ctx))
	defer stopSweep()
	go registry.Run(sweepCtx)

	handler := httpapi.New(registry, exporter, publisher, m, log, httpapi.Options{
		MaxUploadBytes:    cfg.Media.MaxUploadBytes,
		AllowedContainers: cfg.Media.AllowedContainers,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Hot folder mode
	if cfg.Watcher.Enabled {
		proc := processor.New(cfg, registry, exporter, log)

		w, err := watcher.New(cfg.Paths.Input, proc.Process, log, watcher.Options{
			Extensions:    cfg.Media.AllowedContainers,
			MaxConcurrent: cfg.Performance.MaxConcurrent,
		})
		if err != nil {
			log.Error(ctx, "Failed to create watcher: %v", err)
			os.Exit(1)
		}
		defer w.Stop()

		go func() {
			if err := proc.ProcessExisting(ctx, cfg.Paths.Input); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn(ctx, "Backlog processing stopped: %v", err)
			}
		}()
		go func() {
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("watcher: %w", err)
			}
		}()
		log.Info(ctx, "Monitoring: %s -> %s", cfg.Paths.Input, cfg.Paths.Output)
	}

	log.Info(ctx, "Listening on %s (transcription: %s, generation: %s/%s)",
		cfg.Server.Addr, backend.Name(), client.Name(), cfg.Generation.Model)
	log.Info(ctx, "Press Ctrl+C to stop")

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		log.Info(ctx, "Shutdown signal received")
	case err := <-errChan:
		log.Error(ctx, "%v", err)
	}

	// Graceful shutdown
	log.Info(ctx, "Shutting down gracefully...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	shutdown(shutdownCtx, srv, stopSweep, registry, log)

	log.Info(shutdownCtx, "Audio Reader stopped")
}

// shutdown drains in-flight requests before any session is closed
func shutdown(ctx context.Context, srv *http.Server, stopSweep context.CancelFunc, registry *pipeline.Registry, log logger.Logger) {
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn(ctx, "HTTP shutdown: %v", err)
	}
	stopSweep()
	registry.CloseAll(ctx)
}

// ensureDirectories creates required directories if they don't exist
func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.Paths.Output,
		cfg.Paths.Archived,
		cfg.Paths.Temp,
	}
	if cfg.Watcher.Enabled {
		dirs = append(dirs, cfg.Paths.Input)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
