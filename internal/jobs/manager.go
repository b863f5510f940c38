package jobs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"clipforge/internal/pipeline"
	"clipforge/internal/ports"
	"clipforge/internal/render"
)

// Runner executes one pipeline run. Satisfied by *pipeline.Orchestrator;
// tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, inputPath string, rep ports.Reporter, pinnedRunDir string) (pipeline.Result, error)
}

// Manager accepts jobs and executes each one's pipeline on its own
// goroutine, persisting every status change through the store. The accepting
// caller never waits on pipeline completion.
type Manager struct {
	store      *Store
	runner     Runner
	extender   *render.Stage
	sweeper    *Sweeper
	outputBase string
	log        *slog.Logger

	wg sync.WaitGroup
}

func NewManager(store *Store, runner Runner, extender *render.Stage, sweeper *Sweeper, outputBase string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store:      store,
		runner:     runner,
		extender:   extender,
		sweeper:    sweeper,
		outputBase: outputBase,
		log:        log,
	}
}

// Submit registers a queued job for the source path and starts its run in
// the background, returning the job immediately. Each submission also kicks
// off a retention sweep of expired uploads and run directories.
func (m *Manager) Submit(ctx context.Context, sourcePath string) (*Job, error) {
	job, err := m.store.Create(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	m.wg.Add(1)
	go m.execute(job.ID, sourcePath)
	if m.sweeper != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.sweeper.Sweep()
		}()
	}
	return job, nil
}

// Wait blocks until all in-flight jobs finish. Used on shutdown and in
// tests; there is no way to cancel a started run.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) execute(jobID, sourcePath string) {
	defer m.wg.Done()
	ctx := context.Background()

	m.setStatus(jobID, StatusProcessing)
	rep := ports.ReporterFunc(func(stage string) {
		m.setStatus(jobID, stage)
	})

	// A deterministic run dir only makes sense for an existing local file;
	// remote locators get a fresh run directory under the output base.
	runDir := ""
	if _, statErr := os.Stat(sourcePath); statErr == nil {
		runDir = pipeline.DeterministicRunDir(sourcePath)
	}
	result, err := m.runner.Run(ctx, sourcePath, rep, runDir)
	if err != nil {
		m.log.Error("job failed", "job", jobID, "error", err)
		if _, uerr := m.store.Update(ctx, jobID, func(j *Job) {
			j.Status = StatusFailed
			j.Error = err.Error()
		}); uerr != nil {
			m.log.Error("could not record job failure", "job", jobID, "error", uerr)
		}
		return
	}

	clips := result.Candidates
	for i := range clips {
		if clips[i].Filename == "" {
			continue
		}
		clipPath := filepath.Join(result.RunDir, render.ClipsSubdir, clips[i].Filename)
		if rel, relErr := filepath.Rel(m.outputBase, clipPath); relErr == nil {
			clips[i].Path = rel
		} else {
			clips[i].Path = clipPath
		}
	}

	if _, err := m.store.Update(ctx, jobID, func(j *Job) {
		j.Status = StatusDone
		j.Error = ""
		j.RunDir = result.RunDir
		j.SourcePath = result.SourcePath
		j.Clips = clips
	}); err != nil {
		m.log.Error("could not record job completion", "job", jobID, "error", err)
	}
}

func (m *Manager) setStatus(jobID, status string) {
	if _, err := m.store.Update(context.Background(), jobID, func(j *Job) {
		j.Status = status
	}); err != nil {
		m.log.Warn("could not persist job status", "job", jobID, "status", status, "error", err)
	}
}

// Extend adjusts a rendered clip's boundary for a finished job and refreshes
// both the on-disk metadata and the stored job record. The run directory and
// source path come straight off the job record.
func (m *Manager) Extend(ctx context.Context, jobID, filename, direction string, deltaSec float64) (*Job, error) {
	job, err := m.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	updated, err := m.extender.Extend(ctx, render.ExtendRequest{
		RunDir:     job.RunDir,
		SourcePath: job.SourcePath,
		Filename:   filename,
		Direction:  direction,
		DeltaSec:   deltaSec,
	})
	if err != nil {
		return nil, err
	}

	return m.store.Update(ctx, jobID, func(j *Job) {
		for i := range j.Clips {
			if j.Clips[i].Filename == filename {
				j.Clips[i].StartTime = updated.StartTime
				j.Clips[i].EndTime = updated.EndTime
			}
		}
	})
}
