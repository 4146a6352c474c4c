package api_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clipperd/internal/api"
	"clipperd/internal/logging"
	"clipperd/internal/progress"
	"clipperd/internal/queue"
	"clipperd/internal/services"
	"clipperd/internal/testsupport"
)

func newService(t *testing.T) (*api.Service, *queue.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewService(cfg, store, progress.NewTracker(), logging.NewNop())
	return svc, store, cfg.JobsRoot()
}

func TestSubmitAndDescribe(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, "https://example.com/watch?v=abc", queue.Options{AspectRatio: "9:16"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submitted.Status != "pending" {
		t.Fatalf("status = %s", submitted.Status)
	}

	view, err := svc.Describe(ctx, submitted.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if view == nil || view.URL != "https://example.com/watch?v=abc" {
		t.Fatalf("view = %+v", view)
	}
	if view.Progress.HasETA {
		t.Fatal("pending job should not carry an estimate")
	}
}

func TestDescribeUnknownReturnsNil(t *testing.T) {
	svc, _, _ := newService(t)
	view, err := svc.Describe(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if view != nil {
		t.Fatalf("expected nil view, got %+v", view)
	}
}

func TestSelectMovesJobToProcessing(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "https://example.com/watch?v=abc", queue.Options{})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	seedChaptersReady(t, store, job)

	resp, err := svc.Chapters(ctx, job.ID)
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	if len(resp.Chapters) != 2 {
		t.Fatalf("chapters = %+v", resp.Chapters)
	}

	view, err := svc.Select(ctx, job.ID, []string{"ch-2"}, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if view.Status != "processing" {
		t.Fatalf("status = %s", view.Status)
	}
	if len(view.SelectedChapters) != 1 || view.SelectedChapters[0] != "ch-2" {
		t.Fatalf("selected = %v", view.SelectedChapters)
	}
}

func TestSelectRejectsUnknownChapter(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "https://example.com/watch?v=abc", queue.Options{})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	seedChaptersReady(t, store, job)

	if _, err := svc.Select(ctx, job.ID, []string{"ch-9"}, nil); !errors.Is(err, services.ErrInvalidSelection) {
		t.Fatalf("err = %v, want invalid selection", err)
	}
}

func TestDeleteRemovesArtifacts(t *testing.T) {
	svc, store, jobsRoot := newService(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "https://example.com/watch?v=abc", queue.Options{})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	artifactDir := queue.ArtifactRoot(jobsRoot, job.ID)
	testsupport.WriteFile(t, filepath.Join(artifactDir, "source.mp4"), "media")

	removed, err := svc.Delete(ctx, job.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}
	if _, err := os.Stat(artifactDir); !os.IsNotExist(err) {
		t.Fatalf("artifact dir still present: %v", err)
	}
	if again, err := svc.Delete(ctx, job.ID); err != nil || again {
		t.Fatalf("second delete = %v, %v", again, err)
	}
}

func TestClearRemovesJobsAndArtifacts(t *testing.T) {
	svc, store, jobsRoot := newService(t)
	ctx := context.Background()

	first, err := store.NewJob(ctx, "https://example.com/a", queue.Options{})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := store.NewJob(ctx, "https://example.com/b", queue.Options{}); err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(queue.ArtifactRoot(jobsRoot, first.ID), "source.mp4"), "media")

	count, err := svc.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if count != 2 {
		t.Fatalf("cleared = %d", count)
	}
	if _, err := os.Stat(queue.ArtifactRoot(jobsRoot, first.ID)); !os.IsNotExist(err) {
		t.Fatalf("artifacts survived clear: %v", err)
	}
}

func TestClipPathValidation(t *testing.T) {
	svc, store, jobsRoot := newService(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "https://example.com/watch?v=abc", queue.Options{})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := store.UpdateWith(ctx, job.ID, func(j *queue.Job) error {
		j.Status = queue.StatusCompleted
		return j.SetClips([]queue.Clip{{
			Filename:  "clip-01-intro.mp4",
			ChapterID: "ch-1",
			Start:     0, End: 30, Duration: 30,
			Thumbnail: "clip-01-intro.jpg",
			Score:     80,
		}})
	}); err != nil {
		t.Fatalf("UpdateWith: %v", err)
	}
	clipFile := filepath.Join(queue.ArtifactRoot(jobsRoot, job.ID), "clip-01-intro.mp4")
	testsupport.WriteFile(t, clipFile, "clip")

	path, err := svc.ClipPath(ctx, job.ID, "clip-01-intro.mp4")
	if err != nil {
		t.Fatalf("ClipPath: %v", err)
	}
	if path != clipFile {
		t.Fatalf("path = %q, want %q", path, clipFile)
	}

	if _, err := svc.ClipPath(ctx, job.ID, "../escape.mp4"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("traversal err = %v", err)
	}
	if _, err := svc.ClipPath(ctx, job.ID, "other.mp4"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown clip err = %v", err)
	}
	// Thumbnail resolves too, but only when the file exists.
	if _, err := svc.ClipPath(ctx, job.ID, "clip-01-intro.jpg"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing thumbnail err = %v", err)
	}
}

func TestRetryRequiresFailedJob(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "https://example.com/watch?v=abc", queue.Options{})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := svc.Retry(ctx, job.ID); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("retry of pending job err = %v", err)
	}

	if _, err := store.UpdateWith(ctx, job.ID, func(j *queue.Job) error {
		j.SetFailed("video download failed")
		return nil
	}); err != nil {
		t.Fatalf("fail job: %v", err)
	}
	view, err := svc.Retry(ctx, job.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if view.Status != "pending" || view.ErrorMessage != "" {
		t.Fatalf("retried view = %+v", view)
	}
}

func seedChaptersReady(t *testing.T, store *queue.Store, job *queue.Job) {
	t.Helper()
	if _, err := store.UpdateWith(context.Background(), job.ID, func(j *queue.Job) error {
		j.Status = queue.StatusChaptersReady
		return j.SetChapters([]queue.Chapter{
			{ID: "ch-1", Title: "Intro", Start: 0, End: 30, Duration: 30},
			{ID: "ch-2", Title: "Main", Start: 30, End: 90, Duration: 60},
		})
	}); err != nil {
		t.Fatalf("seed chapters: %v", err)
	}
}
