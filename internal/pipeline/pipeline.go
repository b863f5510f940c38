// Package pipeline sequences the highlight pipeline: ingest, transcribe
// (cache-checked), select, render. One Run produces one run directory tree.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"clipforge/internal/ports"
	"clipforge/internal/render"
	"clipforge/internal/transcribe"
	"clipforge/internal/types"
)

// Deps are the external collaborators a run needs. Tests inject fakes.
type Deps struct {
	Fetcher  ports.Fetcher
	Audio    ports.AudioTool
	Speech   ports.SpeechBackend
	Selector ports.Selector
	Renderer ports.Renderer
}

type Orchestrator struct {
	deps       Deps
	outputBase string
	log        *slog.Logger
	cache      *transcribe.Cache
}

func New(deps Deps, outputBase string, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		deps:       deps,
		outputBase: outputBase,
		log:        log,
		cache:      transcribe.NewCache(log),
	}
}

// Result is what a completed run leaves behind.
type Result struct {
	RunDir     string
	SourcePath string
	ClipPaths  []string
	Candidates []types.Candidate
}

// DeterministicRunDir derives a stable run directory from the source path,
// so re-processing the same source reuses (and cleans) the same tree.
func DeterministicRunDir(sourcePath string) string {
	return sourcePath + "_data"
}

// Run executes the full pipeline against a local path or remote locator.
// Stage transitions are reported synchronously through rep on the calling
// goroutine. A pinned run directory is cleaned of prior clips before
// regenerating; the transcript cache next to the source file is reused when
// present. Zero candidates from selection completes the run with no clips.
//
// Cancellation of an in-flight run is not supported: once started, a run
// proceeds to completion or failure.
func (o *Orchestrator) Run(ctx context.Context, inputPath string, rep ports.Reporter, pinnedRunDir string) (Result, error) {
	if rep == nil {
		rep = ports.ReporterFunc(nil)
	}
	rep.Report("initializing")

	runDir := pinnedRunDir
	if runDir == "" {
		runDir = filepath.Join(o.outputBase, fmt.Sprintf("run_%d", time.Now().Unix()))
	}
	rawDir := filepath.Join(runDir, "raw")
	clipsDir := filepath.Join(runDir, render.ClipsSubdir)

	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("prepare run dir: %w", err)
	}
	if pinnedRunDir != "" {
		// Stale artifacts must never survive a re-run.
		if err := os.RemoveAll(clipsDir); err != nil {
			return Result{}, fmt.Errorf("clear stale clips: %w", err)
		}
		if err := os.Remove(render.MetadataPath(runDir)); err != nil && !os.IsNotExist(err) {
			return Result{}, fmt.Errorf("clear stale metadata: %w", err)
		}
	}
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("prepare clips dir: %w", err)
	}

	rep.Report("downloading")
	sourcePath := inputPath
	if _, err := os.Stat(inputPath); err != nil {
		media, fetchErr := o.deps.Fetcher.Fetch(ctx, inputPath, rawDir)
		if fetchErr != nil {
			return Result{}, fetchErr
		}
		o.log.Info("downloaded source", "title", media.Title, "duration_sec", media.Duration)
		sourcePath = media.Path
	}

	text, cached := o.cache.Lookup(sourcePath)
	if cached {
		o.log.Info("reusing cached transcript", "path", o.cache.Path(sourcePath))
		rep.Report("found cached transcript")
	} else {
		stage := transcribe.NewStage(o.deps.Audio, o.deps.Speech, o.log)
		segments, err := stage.Transcribe(ctx, sourcePath, func(percent int) {
			rep.Report(fmt.Sprintf("transcribing: %d%%", percent))
		})
		if err != nil {
			return Result{}, err
		}
		text = transcribe.ToTextBlock(segments)
		o.cache.Store(sourcePath, text)
	}
	if err := os.WriteFile(filepath.Join(runDir, "transcript.txt"), []byte(text), 0o644); err != nil {
		return Result{}, fmt.Errorf("write transcript: %w", err)
	}

	rep.Report("analyzing...")
	candidates, err := o.deps.Selector.Select(ctx, text)
	if err != nil {
		return Result{}, err
	}
	result := Result{RunDir: runDir, SourcePath: sourcePath}
	if len(candidates) == 0 {
		// Soft empty: the pipeline completed, there is just nothing to cut.
		o.log.Info("selection returned no candidates")
		rep.Report("done")
		return result, nil
	}

	rep.Report("rendering")
	stage := render.NewStage(o.deps.Renderer, o.log)
	paths, err := stage.RenderAll(ctx, sourcePath, runDir, candidates, func(done, total int) {
		rep.Report(fmt.Sprintf("rendering: %d/%d", done, total))
	})
	if err != nil {
		return Result{}, err
	}

	rep.Report("done")
	result.ClipPaths = paths
	result.Candidates = candidates
	return result, nil
}
