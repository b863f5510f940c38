// Package render trims highlight candidates into standalone clip files and
// persists the per-run clip metadata.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/ports"
	"clipforge/internal/timecode"
	"clipforge/internal/types"
)

// ClipsSubdir is the run subdirectory holding rendered output.
const ClipsSubdir = "clips"

type Stage struct {
	renderer ports.Renderer
	log      *slog.Logger
}

func NewStage(renderer ports.Renderer, log *slog.Logger) *Stage {
	if log == nil {
		log = slog.Default()
	}
	return &Stage{renderer: renderer, log: log}
}

// RenderAll trims every renderable candidate into runDir/clips, annotates
// rendered candidates with their filename, and writes the full candidate list
// (skipped entries included, without a filename) to the run's metadata file,
// replacing any prior version. Candidates whose end does not come after their
// start are skipped silently. Returns the rendered file paths in candidate
// order.
func (s *Stage) RenderAll(
	ctx context.Context,
	srcPath, runDir string,
	candidates []types.Candidate,
	onProgress func(done, total int),
) ([]string, error) {
	clipsDir := filepath.Join(runDir, ClipsSubdir)
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure clips dir: %w", err)
	}

	var rendered []string
	for i := range candidates {
		if onProgress != nil {
			onProgress(i+1, len(candidates))
		}

		c := &candidates[i]
		startSec := timecode.ParseClock(c.StartTime)
		endSec := timecode.ParseClock(c.EndTime)
		if endSec <= startSec {
			s.log.Debug("skipping candidate with non-positive span",
				"title", c.Title, "start", c.StartTime, "end", c.EndTime)
			continue
		}

		name := Filename(i+1, c.Title)
		outPath := filepath.Join(clipsDir, name)
		if err := s.renderer.Trim(ctx, srcPath, startSec, endSec, outPath); err != nil {
			return nil, err
		}
		c.Filename = name
		rendered = append(rendered, outPath)
	}

	if err := WriteMetadata(runDir, candidates); err != nil {
		return nil, err
	}
	return rendered, nil
}

// Filename derives the stable output name for a candidate: its 1-based index
// plus the sanitized title, so re-rendering the same candidate set overwrites
// in place.
func Filename(index int, title string) string {
	return fmt.Sprintf("clip_%d_%s.mp4", index, sanitizeTitle(title))
}

func sanitizeTitle(title string) string {
	title = strings.ReplaceAll(title, " ", "_")
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "clip"
	}
	return b.String()
}
