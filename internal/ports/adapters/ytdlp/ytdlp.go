// Package ytdlp acquires remote media through the yt-dlp binary.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"clipforge/internal/types"
)

const fetchTimeout = 30 * time.Minute

type Adapter struct {
	bin    string
	ffmpeg string
}

func New(binPath, ffmpegPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath, ffmpeg: ffmpegPath}
}

// Fetch downloads the best mp4-compatible rendition into destDir and returns
// the landed file plus basic metadata.
func (a *Adapter) Fetch(ctx context.Context, locator, destDir string) (types.Media, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return types.Media{}, fmt.Errorf("ensure download dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	args := []string{
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"--merge-output-format", "mp4",
		"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
		"--no-warnings",
		"--no-progress",
		"--print-json",
	}
	if a.ffmpeg != "" {
		args = append(args, "--ffmpeg-location", a.ffmpeg)
	}
	args = append(args, locator)

	cmd := exec.CommandContext(ctx, a.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return types.Media{}, fmt.Errorf("yt-dlp fetch: %w\n%s", err, stderr.String())
	}

	var info struct {
		ID       string  `json:"id"`
		Ext      string  `json:"ext"`
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return types.Media{}, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	if info.Ext == "" {
		// merged downloads sometimes omit ext in the info dict
		info.Ext = "mp4"
	}

	path := filepath.Join(destDir, info.ID+"."+info.Ext)
	if _, err := os.Stat(path); err != nil {
		merged := filepath.Join(destDir, info.ID+".mp4")
		if _, mergedErr := os.Stat(merged); mergedErr != nil {
			return types.Media{}, fmt.Errorf("downloaded file missing: %w", err)
		}
		path = merged
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return types.Media{}, err
	}

	return types.Media{
		Path:     abs,
		Title:    info.Title,
		Duration: info.Duration,
		ID:       info.ID,
	}, nil
}
