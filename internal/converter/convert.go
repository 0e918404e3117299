package converter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nguyentantai21042004/audio-reader/internal/models"
)

const (
	mp3SampleRate = 44100
	mp3Bitrate    = "128k"
)

// Convert extracts a mono audio track from asset.
// MP3 is resampled to 44.1kHz/128kbps; WAV keeps the source sample rate.
func (c *implConverter) Convert(ctx context.Context, asset models.MediaAsset, target models.AudioFormat, outDir string) (models.AudioTrack, error) {
	// Step 1: Check container against the allow-list
	container := asset.Container
	if container == "" {
		container = models.ContainerOf(asset.Name)
	}
	if !c.allowed[container] {
		return models.AudioTrack{}, &ConversionError{Reason: ReasonUnsupportedContainer, Err: fmt.Errorf("container %q", container)}
	}

	// Step 2: Refuse sources without an audio stream instead of producing silence
	probe, err := c.probeAudio(ctx, asset.Path)
	if err != nil {
		return models.AudioTrack{}, err
	}

	// Step 3: Extract audio only, dropping every video stream
	outPath := filepath.Join(outDir, "audio"+target.Ext())
	args, err := buildFFmpegArgs(asset.Path, outPath, target)
	if err != nil {
		return models.AudioTrack{}, &ConversionError{Reason: ReasonToolFailure, Err: err}
	}

	c.logger.Info(ctx, "Extracting %s audio from %s", target, asset.Name)
	if _, err := c.executor.Execute(ctx, c.ffmpeg, args...); err != nil {
		return models.AudioTrack{}, &ConversionError{Reason: ReasonToolFailure, Err: err}
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return models.AudioTrack{}, &ConversionError{Reason: ReasonEmptyOutput, Err: err}
	}
	if info.Size() == 0 {
		return models.AudioTrack{}, &ConversionError{Reason: ReasonEmptyOutput}
	}

	track := models.AudioTrack{
		Format:   target,
		Channels: 1,
		Size:     info.Size(),
		Path:     outPath,
	}
	switch target {
	case models.FormatMP3:
		track.SampleRate = mp3SampleRate
		track.Bitrate = mp3Bitrate
	case models.FormatWAV:
		track.SampleRate = probe.sampleRate
		track.Bitrate = "lossless"
	}

	c.logger.Info(ctx, "Audio extracted: %s (%d bytes)", outPath, track.Size)
	return track, nil
}

func buildFFmpegArgs(input, output string, target models.AudioFormat) ([]string, error) {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", input, "-vn", "-ac", "1"}

	switch target {
	case models.FormatMP3:
		args = append(args, "-ar", strconv.Itoa(mp3SampleRate), "-b:a", mp3Bitrate)
	case models.FormatWAV:
		args = append(args, "-c:a", "pcm_s16le")
	default:
		return nil, fmt.Errorf("unsupported target format %q", target)
	}

	return append(args, output), nil
}

type audioProbe struct {
	sampleRate int
	channels   int
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

func (c *implConverter) probeAudio(ctx context.Context, path string) (audioProbe, error) {
	out, err := c.executor.Execute(ctx, c.ffprobe,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type,sample_rate,channels",
		"-of", "json",
		path,
	)
	if err != nil {
		return audioProbe{}, &ConversionError{Reason: ReasonProbeFailed, Err: err}
	}
	return parseProbe(out)
}

func parseProbe(out string) (audioProbe, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return audioProbe{}, &ConversionError{Reason: ReasonProbeFailed, Err: fmt.Errorf("parse ffprobe output: %w", err)}
	}

	for _, s := range parsed.Streams {
		if s.CodecType != "audio" {
			continue
		}
		rate, _ := strconv.Atoi(s.SampleRate)
		return audioProbe{sampleRate: rate, channels: s.Channels}, nil
	}

	return audioProbe{}, &ConversionError{Reason: ReasonNoAudioStream}
}
