// Package ffmpeg shells out to ffmpeg/ffprobe for audio normalization, chunk
// export, duration probing and clip rendering.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// renderTimeout bounds a single trim/re-encode; a stuck subprocess surfaces
// as a stage failure instead of hanging the job forever.
const renderTimeout = 30 * time.Minute

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inPath, outWav string) error {
	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// ExportChunk re-encodes a span of the normalized WAV as MP3 to keep the
// upload to the transcription backend small.
func (a *Adapter) ExportChunk(ctx context.Context, inWav string, startSec, durSec float64, outMP3 string) error {
	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(startSec),
		"-t", fmtSeconds(durSec),
		"-i", inWav,
		"-codec:a", "libmp3lame",
		"-b:a", "64k",
		outMP3,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg export chunk: %w\n%s", err, string(b))
	}
	return nil
}

// Trim re-encodes [startSec, endSec) into a standalone clip. The duration is
// passed with -t, so an end past the source's natural end truncates there.
func (a *Adapter) Trim(ctx context.Context, srcPath string, startSec, endSec float64, outPath string) error {
	return a.trim(ctx, srcPath, startSec, endSec, outPath, "")
}

// TrimVertical renders a 9:16 crop of the span, horizontally centered on
// centerX (normalized 0..1).
func (a *Adapter) TrimVertical(ctx context.Context, srcPath string, startSec, endSec float64, outPath string, centerX float64) error {
	if centerX < 0 {
		centerX = 0
	}
	if centerX > 1 {
		centerX = 1
	}
	filter := fmt.Sprintf(
		"crop=min(iw\\,ih*9/16):ih:clip(iw*%s-min(iw\\,ih*9/16)/2\\,0\\,iw-min(iw\\,ih*9/16)):0",
		strconv.FormatFloat(centerX, 'f', 4, 64),
	)
	return a.trim(ctx, srcPath, startSec, endSec, outPath, filter)
}

func (a *Adapter) trim(ctx context.Context, srcPath string, startSec, endSec float64, outPath, filter string) error {
	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()
	args := []string{
		"-y",
		"-ss", fmtSeconds(startSec),
		"-i", srcPath,
		"-t", fmtSeconds(endSec - startSec),
	}
	if filter != "" {
		args = append(args, "-vf", filter)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "aac",
		"-b:a", "192k",
		outPath,
	)
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg trim clip: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
