package render_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clipperd/internal/config"
	"clipperd/internal/logging"
	"clipperd/internal/queue"
	"clipperd/internal/render"
	"clipperd/internal/services"
	"clipperd/internal/testsupport"
)

const renderTranscript = `1
00:00:00,000 --> 00:00:10,000
The opening remarks.

2
00:00:30,000 --> 00:00:40,000
The second section begins.
`

type stubRenderer struct {
	renderErr   error
	renderCalls int
	thumbCalls  int
}

func (s *stubRenderer) RenderClip(ctx context.Context, spec render.ClipSpec) error {
	s.renderCalls++
	if s.renderErr != nil {
		return s.renderErr
	}
	return os.WriteFile(spec.Output, []byte("clip"), 0o644)
}

func (s *stubRenderer) Thumbnail(ctx context.Context, input, output string, at float64) error {
	s.thumbCalls++
	return os.WriteFile(output, []byte("thumb"), 0o644)
}

func newRenderJob(t *testing.T, cfg *config.Config, store *queue.Store) *queue.Job {
	t.Helper()
	ctx := context.Background()
	job, err := store.NewJob(ctx, "https://example.com/watch?v=abc", queue.Options{AspectRatio: "9:16"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	artifactDir := queue.ArtifactRoot(cfg.JobsRoot(), job.ID)
	media := filepath.Join(artifactDir, "source.mp4")
	testsupport.WriteFile(t, media, "media")
	transcript := filepath.Join(artifactDir, "source.srt")
	testsupport.WriteFile(t, transcript, renderTranscript)

	job.MediaFile = media
	job.TranscriptFile = transcript
	chapters := []queue.Chapter{
		{ID: "ch-1", Title: "Opening Remarks", Start: 0, End: 20, Duration: 20, Confidence: 0.9},
		{ID: "ch-2", Title: "Second Section", Start: 30, End: 60, Duration: 30},
	}
	if err := job.SetChapters(chapters); err != nil {
		t.Fatalf("SetChapters: %v", err)
	}
	if err := job.SetSelectedChapterIDs([]string{"ch-1", "ch-2"}); err != nil {
		t.Fatalf("SetSelectedChapterIDs: %v", err)
	}
	job.Status = queue.StatusProcessing
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return job
}

func TestRenderExecuteProducesClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newRenderJob(t, cfg, store)
	renderer := &stubRenderer{}
	handler := render.NewHandlerWithRenderer(cfg, store, logging.NewNop(), renderer)

	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	clips, err := job.Clips()
	if err != nil {
		t.Fatalf("Clips: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("len(clips) = %d", len(clips))
	}
	if clips[0].Score != 90 {
		t.Fatalf("clips[0].Score = %d, want confidence-derived 90", clips[0].Score)
	}
	if clips[1].Score != 75 {
		t.Fatalf("clips[1].Score = %d, want default 75", clips[1].Score)
	}

	artifactDir := queue.ArtifactRoot(cfg.JobsRoot(), job.ID)
	for _, clip := range clips {
		if _, err := os.Stat(filepath.Join(artifactDir, clip.Filename)); err != nil {
			t.Fatalf("clip file %s missing: %v", clip.Filename, err)
		}
		if clip.Thumbnail == "" {
			t.Fatalf("clip %s has no thumbnail", clip.Filename)
		}
	}
	if renderer.renderCalls != 2 || renderer.thumbCalls != 2 {
		t.Fatalf("render calls = %d, thumb calls = %d", renderer.renderCalls, renderer.thumbCalls)
	}
}

func TestRenderExecuteSkipsExistingClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newRenderJob(t, cfg, store)
	renderer := &stubRenderer{}
	handler := render.NewHandlerWithRenderer(cfg, store, logging.NewNop(), renderer)

	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	firstRunCalls := renderer.renderCalls

	// Re-entering the stage must not re-render finished clips.
	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if renderer.renderCalls != firstRunCalls {
		t.Fatalf("render calls grew from %d to %d", firstRunCalls, renderer.renderCalls)
	}

	clips, err := job.Clips()
	if err != nil {
		t.Fatalf("Clips: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("len(clips) = %d", len(clips))
	}
}

func TestRenderExecuteWrapsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newRenderJob(t, cfg, store)
	renderer := &stubRenderer{renderErr: errors.New("encoder blew up")}
	handler := render.NewHandlerWithRenderer(cfg, store, logging.NewNop(), renderer)

	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := handler.Execute(ctx, job)
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected render error, got %v", err)
	}
}

func TestRenderPrepareRequiresSelection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := &queue.Job{ID: "job-1", MediaFile: "/nonexistent"}
	handler := render.NewHandlerWithRenderer(cfg, store, logging.NewNop(), &stubRenderer{})
	if err := handler.Prepare(context.Background(), job); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}
