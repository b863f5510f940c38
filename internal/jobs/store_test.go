package jobs

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clipforge/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreCreateAndGet(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "/media/video.mp4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.ID == "" {
		t.Fatalf("job id must be assigned on create")
	}
	if job.Status != StatusQueued {
		t.Fatalf("new job status = %q, want %q", job.Status, StatusQueued)
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SourcePath != "/media/video.mp4" {
		t.Fatalf("source path not persisted: %+v", got)
	}
	if got.Clips == nil || len(got.Clips) != 0 {
		t.Fatalf("new job clips must be empty, got %+v", got.Clips)
	}
}

func TestStoreGetUnknown(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	if _, err := store.Get(context.Background(), "no-such-id"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	older, err := store.Create(ctx, "first.mp4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	newer, err := store.Create(ctx, "second.mp4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	jobs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != newer.ID || jobs[1].ID != older.ID {
		t.Fatalf("jobs not ordered newest first: %s then %s", jobs[0].ID, jobs[1].ID)
	}
}

func TestStoreUpdatePersistsMutation(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "video.mp4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	time.Sleep(2 * time.Millisecond)
	if _, err := store.Update(ctx, job.ID, func(j *Job) {
		j.Status = StatusDone
		j.RunDir = "/out/video.mp4_data"
		j.Clips = []types.Candidate{{Title: "Best Bit", Filename: "clip_1_Best_Bit.mp4"}}
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusDone || got.RunDir != "/out/video.mp4_data" {
		t.Fatalf("mutation not persisted: %+v", got)
	}
	if len(got.Clips) != 1 || got.Clips[0].Filename != "clip_1_Best_Bit.mp4" {
		t.Fatalf("clips not persisted: %+v", got.Clips)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Fatalf("updated_at not advanced: created %v, updated %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestStoreUpdateUnknown(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	if _, err := store.Update(context.Background(), "ghost", func(j *Job) {}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDeleteIdempotent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "video.mp4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Delete(ctx, job.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, job.ID); err != ErrNotFound {
		t.Fatalf("deleted job still readable: %v", err)
	}
	if err := store.Delete(ctx, job.ID); err != nil {
		t.Fatalf("deleting an unknown id must not error: %v", err)
	}
}

func TestStoreConcurrentUpdates(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	a, err := store.Create(ctx, "a.mp4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := store.Create(ctx, "b.mp4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for _, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := store.Update(ctx, id, func(j *Job) {
					j.Status = StatusProcessing
				}); err != nil {
					t.Errorf("concurrent update %s: %v", id, err)
					return
				}
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{a.ID, b.ID} {
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got.Status != StatusProcessing {
			t.Fatalf("job %s lost its update: %+v", id, got)
		}
	}
}

func TestStoreCorruptClipsTreatedAsEmpty(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "jobs.db")
	store, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	job, err := store.Create(ctx, "video.mp4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("raw open: %v", err)
	}
	defer raw.Close()
	if _, err := raw.Exec(`UPDATE jobs SET clips_json = '{{{' WHERE id = ?`, job.ID); err != nil {
		t.Fatalf("corrupt clips payload: %v", err)
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get with corrupt clips: %v", err)
	}
	if got.Clips == nil || len(got.Clips) != 0 {
		t.Fatalf("corrupt clips must degrade to empty, got %+v", got.Clips)
	}
}
