package selection_test

import (
	"context"
	"errors"
	"testing"

	"clipperd/internal/logging"
	"clipperd/internal/queue"
	"clipperd/internal/selection"
	"clipperd/internal/services"
	"clipperd/internal/testsupport"
)

func newParkedJob(t *testing.T, store *queue.Store) *queue.Job {
	t.Helper()
	ctx := context.Background()
	job, err := store.NewJob(ctx, "https://example.com/watch?v=abc", queue.Options{})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	chapters := []queue.Chapter{
		{ID: "ch-1", Title: "Intro", Start: 0, End: 30, Duration: 30},
		{ID: "ch-2", Title: "Middle", Start: 30, End: 90, Duration: 60},
		{ID: "ch-3", Title: "Outro", Start: 90, End: 120, Duration: 30},
	}
	if err := job.SetChapters(chapters); err != nil {
		t.Fatalf("SetChapters: %v", err)
	}
	job.Status = queue.StatusChaptersReady
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return job
}

func TestGateChapters(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	gate := selection.NewGate(store, logging.NewNop())
	job := newParkedJob(t, store)

	chapters, err := gate.Chapters(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	if len(chapters) != 3 {
		t.Fatalf("len(chapters) = %d", len(chapters))
	}
}

func TestGateChaptersWrongState(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	gate := selection.NewGate(store, logging.NewNop())
	ctx := context.Background()

	job, err := store.NewJob(ctx, "https://example.com/watch?v=abc", queue.Options{})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := gate.Chapters(ctx, job.ID); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestGateChaptersUnknownJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	gate := selection.NewGate(store, logging.NewNop())

	if _, err := gate.Chapters(context.Background(), "no-such-job"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestGateSelectMovesJobToProcessing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	gate := selection.NewGate(store, logging.NewNop())
	job := newParkedJob(t, store)
	ctx := context.Background()

	updated, err := gate.Select(ctx, job.ID, []string{"ch-3", "ch-1", "ch-3"}, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if updated.Status != queue.StatusProcessing {
		t.Fatalf("status = %s", updated.Status)
	}

	ids, err := updated.SelectedChapterIDs()
	if err != nil {
		t.Fatalf("SelectedChapterIDs: %v", err)
	}
	// Duplicates dropped, first-seen order kept.
	if len(ids) != 2 || ids[0] != "ch-3" || ids[1] != "ch-1" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestGateSelectAppliesOptionOverrides(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	gate := selection.NewGate(store, logging.NewNop())
	job := newParkedJob(t, store)
	ctx := context.Background()

	overrides := queue.Options{CaptionStyle: "bold", AspectRatio: "1:1"}
	updated, err := gate.Select(ctx, job.ID, []string{"ch-2"}, &overrides)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	opts, err := updated.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.CaptionStyle != "bold" || opts.AspectRatio != "1:1" {
		t.Fatalf("overrides not stored: %+v", opts)
	}
}

func TestGateSelectRejectsEmptySelection(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	gate := selection.NewGate(store, logging.NewNop())
	job := newParkedJob(t, store)

	if _, err := gate.Select(context.Background(), job.ID, nil, nil); !errors.Is(err, services.ErrInvalidSelection) {
		t.Fatalf("expected invalid selection error, got %v", err)
	}
	if _, err := gate.Select(context.Background(), job.ID, []string{"", ""}, nil); !errors.Is(err, services.ErrInvalidSelection) {
		t.Fatalf("expected invalid selection error, got %v", err)
	}
}

func TestGateSelectRejectsUnknownChapterWholeSet(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	gate := selection.NewGate(store, logging.NewNop())
	job := newParkedJob(t, store)
	ctx := context.Background()

	if _, err := gate.Select(ctx, job.ID, []string{"ch-1", "ch-99"}, nil); !errors.Is(err, services.ErrInvalidSelection) {
		t.Fatalf("expected invalid selection error, got %v", err)
	}

	// The valid part of the rejected selection must not have been stored.
	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != queue.StatusChaptersReady {
		t.Fatalf("status = %s", fetched.Status)
	}
	ids, err := fetched.SelectedChapterIDs()
	if err != nil {
		t.Fatalf("SelectedChapterIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("partial selection stored: %v", ids)
	}
}

func TestGateSelectRejectsReSelection(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	gate := selection.NewGate(store, logging.NewNop())
	job := newParkedJob(t, store)
	ctx := context.Background()

	if _, err := gate.Select(ctx, job.ID, []string{"ch-1"}, nil); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := gate.Select(ctx, job.ID, []string{"ch-2"}, nil); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("expected invalid state error for re-selection, got %v", err)
	}
}

func TestGateSelectUnknownJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	gate := selection.NewGate(store, logging.NewNop())

	if _, err := gate.Select(context.Background(), "no-such-job", []string{"ch-1"}, nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
