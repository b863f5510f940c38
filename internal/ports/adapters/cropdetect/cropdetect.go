// Package cropdetect estimates the horizontal subject center of a video span
// by sampling ffmpeg's cropdetect filter output. It approximates a
// face-tracking service well enough for centering a vertical crop.
package cropdetect

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"time"
)

const analyzeTimeout = 10 * time.Minute

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

var cropLineRE = regexp.MustCompile(`crop=(\d+):(\d+):(\d+):(\d+)`)

// Analyze returns the normalized horizontal crop center in [0,1] for the
// [startSec, endSec) span, 0.5 when nothing usable is detected.
func (a *Adapter) Analyze(ctx context.Context, videoPath string, startSec, endSec float64) (float64, error) {
	width, err := a.probeWidth(ctx, videoPath)
	if err != nil {
		return 0, err
	}
	if width <= 0 {
		return 0, fmt.Errorf("invalid video width %d", width)
	}

	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-ss", strconv.FormatFloat(startSec, 'f', 3, 64),
		"-t", strconv.FormatFloat(endSec-startSec, 'f', 3, 64),
		"-i", videoPath,
		"-vf", "cropdetect=limit=24:round=2:reset=0",
		"-f", "null", "-",
	)
	// cropdetect reports on stderr; a nonzero exit with no matches is the
	// real failure signal.
	out, runErr := cmd.CombinedOutput()

	centers := make([]float64, 0, 64)
	for _, m := range cropLineRE.FindAllStringSubmatch(string(out), -1) {
		w, _ := strconv.Atoi(m[1])
		x, _ := strconv.Atoi(m[3])
		if w <= 0 {
			continue
		}
		centers = append(centers, (float64(x)+float64(w)/2)/float64(width))
	}
	if len(centers) == 0 {
		if runErr != nil {
			return 0, fmt.Errorf("ffmpeg cropdetect: %w\n%s", runErr, string(out))
		}
		return 0.5, nil
	}

	sort.Float64s(centers)
	return centers[len(centers)/2], nil
}

func (a *Adapter) probeWidth(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe width: %w\n%s", err, string(b))
	}
	w, err := strconv.Atoi(string(regexp.MustCompile(`\d+`).Find(b)))
	if err != nil {
		return 0, fmt.Errorf("parse width: %w", err)
	}
	return w, nil
}
