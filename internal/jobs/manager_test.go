package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipforge/internal/pipeline"
	"clipforge/internal/ports"
	"clipforge/internal/render"
	"clipforge/internal/types"
)

type fakeRunner struct {
	result pipeline.Result
	err    error
	stages []string
}

func (f *fakeRunner) Run(_ context.Context, _ string, rep ports.Reporter, _ string) (pipeline.Result, error) {
	for _, s := range f.stages {
		rep.Report(s)
	}
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	return f.result, nil
}

type fakeTrimmer struct{ calls int }

func (f *fakeTrimmer) Trim(_ context.Context, _ string, _, _ float64, outPath string) error {
	f.calls++
	return os.WriteFile(outPath, []byte("clip"), 0o644)
}

func TestManagerSubmitRunsToCompletion(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	outputBase := t.TempDir()
	runDir := filepath.Join(outputBase, "video.mp4_data")

	runner := &fakeRunner{
		stages: []string{"initializing", "transcribing: 50%", "done"},
		result: pipeline.Result{
			RunDir:     runDir,
			SourcePath: "/media/video.mp4",
			ClipPaths:  []string{filepath.Join(runDir, render.ClipsSubdir, "clip_1_Best.mp4")},
			Candidates: []types.Candidate{{
				StartTime: "00:05", EndTime: "00:35", Title: "Best",
				Filename: "clip_1_Best.mp4", Score: 90,
			}},
		},
	}
	mgr := NewManager(store, runner, render.NewStage(&fakeTrimmer{}, nil), nil, outputBase, nil)

	job, err := mgr.Submit(context.Background(), "/media/video.mp4")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != StatusQueued {
		t.Fatalf("submit must return the queued job, got %q", job.Status)
	}
	mgr.Wait()

	got, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusDone {
		t.Fatalf("job status = %q, want %q", got.Status, StatusDone)
	}
	if got.RunDir != runDir || got.SourcePath != "/media/video.mp4" {
		t.Fatalf("run details not recorded: %+v", got)
	}
	if len(got.Clips) != 1 {
		t.Fatalf("expected 1 clip on the job, got %+v", got.Clips)
	}
	wantPath := filepath.Join("video.mp4_data", render.ClipsSubdir, "clip_1_Best.mp4")
	if got.Clips[0].Path != wantPath {
		t.Fatalf("clip path = %q, want %q (relative to the output base)", got.Clips[0].Path, wantPath)
	}
}

func TestManagerRecordsFailure(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	runner := &fakeRunner{err: errors.New("source unreachable")}
	mgr := NewManager(store, runner, render.NewStage(&fakeTrimmer{}, nil), nil, t.TempDir(), nil)

	job, err := mgr.Submit(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	mgr.Wait()

	got, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("job status = %q, want %q", got.Status, StatusFailed)
	}
	if got.Error != "source unreachable" {
		t.Fatalf("job error = %q", got.Error)
	}
}

func TestManagerExtendUpdatesJobRecord(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	outputBase := t.TempDir()
	runDir := filepath.Join(outputBase, "video.mp4_data")
	if err := os.MkdirAll(filepath.Join(runDir, render.ClipsSubdir), 0o755); err != nil {
		t.Fatalf("mkdir clips: %v", err)
	}

	clip := types.Candidate{
		StartTime: "00:05", EndTime: "00:35", Title: "Best", Filename: "clip_1_Best.mp4",
	}
	if err := render.WriteMetadata(runDir, []types.Candidate{clip}); err != nil {
		t.Fatalf("seed metadata: %v", err)
	}

	ctx := context.Background()
	job, err := store.Create(ctx, "/media/video.mp4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Update(ctx, job.ID, func(j *Job) {
		j.Status = StatusDone
		j.RunDir = runDir
		j.SourcePath = "/media/video.mp4"
		j.Clips = []types.Candidate{clip}
	}); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	trimmer := &fakeTrimmer{}
	mgr := NewManager(store, &fakeRunner{}, render.NewStage(trimmer, nil), nil, outputBase, nil)

	got, err := mgr.Extend(ctx, job.ID, "clip_1_Best.mp4", render.DirectionEnd, 10)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if trimmer.calls != 1 {
		t.Fatalf("expected the clip to be re-rendered once, got %d", trimmer.calls)
	}
	if got.Clips[0].EndTime != "00:45" {
		t.Fatalf("job record not refreshed: %+v", got.Clips[0])
	}

	persisted := render.LoadMetadata(runDir, nil)
	if persisted[0].EndTime != "00:45" {
		t.Fatalf("metadata not refreshed: %+v", persisted[0])
	}
}

type pinRecorder struct {
	pinned string
}

func (p *pinRecorder) Run(_ context.Context, _ string, _ ports.Reporter, pinnedRunDir string) (pipeline.Result, error) {
	p.pinned = pinnedRunDir
	return pipeline.Result{}, nil
}

func TestManagerPinsRunDirOnlyForLocalSources(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	source := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(source, []byte("video"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	runner := &pinRecorder{}
	mgr := NewManager(store, runner, render.NewStage(&fakeTrimmer{}, nil), nil, t.TempDir(), nil)

	if _, err := mgr.Submit(context.Background(), source); err != nil {
		t.Fatalf("submit local: %v", err)
	}
	mgr.Wait()
	if runner.pinned != pipeline.DeterministicRunDir(source) {
		t.Fatalf("local source must pin its deterministic run dir, got %q", runner.pinned)
	}

	if _, err := mgr.Submit(context.Background(), "https://example.com/watch?v=abc"); err != nil {
		t.Fatalf("submit remote: %v", err)
	}
	mgr.Wait()
	if runner.pinned != "" {
		t.Fatalf("remote locator must not derive a run dir from its URL, got %q", runner.pinned)
	}
}

func TestManagerSubmitTriggersRetentionSweep(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	outputDir := t.TempDir()
	uploadDir := filepath.Join(outputDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		t.Fatalf("mkdir uploads: %v", err)
	}
	stale := filepath.Join(uploadDir, "stale.mp4")
	if err := os.WriteFile(stale, []byte("video"), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	backdate(t, stale, 2*time.Hour)

	sweeper := NewSweeper(uploadDir, outputDir, time.Hour, nil)
	mgr := NewManager(store, &fakeRunner{}, render.NewStage(&fakeTrimmer{}, nil), sweeper, outputDir, nil)

	if _, err := mgr.Submit(context.Background(), "https://example.com/v"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	mgr.Wait()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("submission must sweep expired uploads, stat err = %v", err)
	}
}

func TestManagerExtendUnknownJob(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	mgr := NewManager(store, &fakeRunner{}, render.NewStage(&fakeTrimmer{}, nil), nil, t.TempDir(), nil)

	if _, err := mgr.Extend(context.Background(), "ghost", "clip_1.mp4", render.DirectionEnd, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
