package analyze_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clipperd/internal/analyze"
	"clipperd/internal/config"
	"clipperd/internal/logging"
	"clipperd/internal/queue"
	"clipperd/internal/services"
	"clipperd/internal/testsupport"
)

const analyzeTranscript = `1
00:00:00,000 --> 00:00:20,000
Welcome to the deep dive on build systems.

2
00:00:20,000 --> 00:00:40,000
Incremental builds are where the real wins are.
`

type fakeCompleter struct {
	content string
	err     error
	calls   int
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func newAnalyzeJob(t *testing.T, cfg *config.Config, store *queue.Store, opts queue.Options) *queue.Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), "https://example.com/watch?v=abc", opts)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	transcript := filepath.Join(queue.ArtifactRoot(cfg.JobsRoot(), job.ID), "source.srt")
	testsupport.WriteFile(t, transcript, analyzeTranscript)
	job.TranscriptFile = transcript
	if err := job.SetMetadata(queue.Metadata{Title: "Build Systems", Duration: 40}); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	return job
}

func TestAnalyzeExecuteRuleBased(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newAnalyzeJob(t, cfg, store, queue.Options{})
	handler := analyze.NewHandlerWithClient(cfg, store, logging.NewNop(), nil)

	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	chapters, err := job.Chapters()
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	if len(chapters) == 0 {
		t.Fatal("expected at least one chapter")
	}

	artifact := filepath.Join(queue.ArtifactRoot(cfg.JobsRoot(), job.ID), "chapters.json")
	raw, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatalf("read chapters.json: %v", err)
	}
	var payload struct {
		Chapters []queue.Chapter `json:"chapters"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode chapters.json: %v", err)
	}
	if len(payload.Chapters) != len(chapters) {
		t.Fatalf("artifact has %d chapters, job has %d", len(payload.Chapters), len(chapters))
	}
}

func TestAnalyzeExecuteUsesLLMWhenRequested(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newAnalyzeJob(t, cfg, store, queue.Options{UseAI: true})
	client := &fakeCompleter{content: `{"chapters":[{"title":"The Whole Thing","start":0,"end":40,"confidence":0.95}]}`}
	handler := analyze.NewHandlerWithClient(cfg, store, logging.NewNop(), client)

	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("llm calls = %d", client.calls)
	}

	chapters, err := job.Chapters()
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	if len(chapters) != 1 || chapters[0].Title != "The Whole Thing" {
		t.Fatalf("chapters = %+v", chapters)
	}
}

func TestAnalyzeExecuteFallsBackWhenLLMFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newAnalyzeJob(t, cfg, store, queue.Options{UseAI: true})
	client := &fakeCompleter{err: errors.New("model unavailable")}
	handler := analyze.NewHandlerWithClient(cfg, store, logging.NewNop(), client)

	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	chapters, err := job.Chapters()
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	if len(chapters) == 0 {
		t.Fatal("expected rule-based fallback chapters")
	}
}

func TestAnalyzeExecuteFailsOnEmptyTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newAnalyzeJob(t, cfg, store, queue.Options{})
	testsupport.WriteFile(t, job.TranscriptFile, "\n")

	handler := analyze.NewHandlerWithClient(cfg, store, logging.NewNop(), nil)
	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	err := handler.Execute(ctx, job)
	if !errors.Is(err, services.ErrAnalysis) {
		t.Fatalf("expected analysis error, got %v", err)
	}
	if msg := services.Message(err); msg != "no speech detected" {
		t.Fatalf("message = %q", msg)
	}
}

func TestAnalyzePrepareRequiresTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	handler := analyze.NewHandlerWithClient(cfg, store, logging.NewNop(), nil)
	job := &queue.Job{ID: "job-1"}
	if err := handler.Prepare(context.Background(), job); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}
