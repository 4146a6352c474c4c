package transcribe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clipperd/internal/config"
	"clipperd/internal/logging"
	"clipperd/internal/queue"
	"clipperd/internal/services"
	"clipperd/internal/testsupport"
	"clipperd/internal/transcribe"
)

const stubTranscript = `1
00:00:00,000 --> 00:00:05,000
Hello and welcome.
`

type stubTranscriber struct {
	content string
	err     error
	calls   int
}

func (s *stubTranscriber) Transcribe(ctx context.Context, mediaFile, destDir string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	path := filepath.Join(destDir, "source.srt")
	if err := os.WriteFile(path, []byte(s.content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func newTranscribeJob(t *testing.T, cfg *config.Config, store *queue.Store) *queue.Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), "https://example.com/watch?v=abc", queue.Options{})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	media := filepath.Join(queue.ArtifactRoot(cfg.JobsRoot(), job.ID), "source.mp4")
	testsupport.WriteFile(t, media, "media")
	job.MediaFile = media
	return job
}

func TestTranscribeExecuteProducesTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newTranscribeJob(t, cfg, store)
	transcriber := &stubTranscriber{content: stubTranscript}
	handler := transcribe.NewHandlerWithTranscriber(cfg, store, logging.NewNop(), transcriber)

	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if job.TranscriptFile == "" {
		t.Fatal("expected transcript path")
	}
	if _, err := os.Stat(job.TranscriptFile); err != nil {
		t.Fatalf("transcript missing: %v", err)
	}
}

func TestTranscribeExecuteReusesTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newTranscribeJob(t, cfg, store)
	existing := filepath.Join(queue.ArtifactRoot(cfg.JobsRoot(), job.ID), "source.srt")
	testsupport.WriteFile(t, existing, stubTranscript)
	job.TranscriptFile = existing

	transcriber := &stubTranscriber{content: stubTranscript}
	handler := transcribe.NewHandlerWithTranscriber(cfg, store, logging.NewNop(), transcriber)
	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if transcriber.calls != 0 {
		t.Fatalf("expected transcriber not to run, got %d calls", transcriber.calls)
	}
}

func TestTranscribeExecuteFailsOnEmptyTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newTranscribeJob(t, cfg, store)
	transcriber := &stubTranscriber{content: "\n"}
	handler := transcribe.NewHandlerWithTranscriber(cfg, store, logging.NewNop(), transcriber)

	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := handler.Execute(ctx, job)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if msg := services.Message(err); msg != "no speech detected" {
		t.Fatalf("message = %q", msg)
	}
}

func TestTranscribePrepareRequiresMedia(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	handler := transcribe.NewHandlerWithTranscriber(cfg, store, logging.NewNop(), &stubTranscriber{})
	job := &queue.Job{ID: "job-1"}
	if err := handler.Prepare(context.Background(), job); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}
