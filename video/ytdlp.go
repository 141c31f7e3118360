package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// Media is the downloaded audio track of a video plus its metadata.
type Media struct {
	AudioPath string
	Title     string
	Duration  float64
}

// Extractor downloads the audio track of a video URL with yt-dlp.
type Extractor struct {
	binary  string
	tempDir string
	logger  *slog.Logger
}

func NewExtractor(binary, tempDir string) *Extractor {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Extractor{
		binary:  binary,
		tempDir: tempDir,
		logger:  slog.Default(),
	}
}

// ExtractAudio downloads the audio as mp3 and returns the local path
// with the video title and duration. The caller removes the file when
// done. The subprocess dies with the context.
func (e *Extractor) ExtractAudio(ctx context.Context, videoURL string) (*Media, error) {
	if err := os.MkdirAll(e.tempDir, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	audioPath := filepath.Join(e.tempDir, uuid.NewString()+".mp3")

	cmd := exec.CommandContext(ctx, e.binary,
		"-x",
		"--audio-format", "mp3",
		"-o", audioPath,
		"--print-json",
		"--no-progress",
		videoURL,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Info("extracting audio from video", "url", videoURL)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, stderr.String())
	}

	var meta struct {
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}

	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file missing after download: %w", err)
	}

	return &Media{
		AudioPath: audioPath,
		Title:     meta.Title,
		Duration:  meta.Duration,
	}, nil
}
