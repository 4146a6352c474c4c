package ipc_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"clipperd/internal/daemon"
	"clipperd/internal/ipc"
	"clipperd/internal/logging"
	"clipperd/internal/queue"
	"clipperd/internal/stage"
	"clipperd/internal/testsupport"
	"clipperd/internal/workflow"
)

type idleStage struct{ name string }

func (s idleStage) Prepare(context.Context, *queue.Job) error { return nil }
func (s idleStage) Execute(context.Context, *queue.Job) error { return nil }
func (s idleStage) HealthCheck(context.Context) stage.Health  { return stage.Healthy(s.name) }

// startIPC builds a daemon without launching its workers, so queue state
// only changes through RPC calls.
func startIPC(t *testing.T) (*ipc.Client, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.ConfigureStages(workflow.StageSet{
		Download:   idleStage{name: "download"},
		Transcribe: idleStage{name: "transcribe"},
		Analyze:    idleStage{name: "analyze"},
		Render:     idleStage{name: "render"},
	})
	d, err := daemon.New(cfg, store, logging.NewNop(), mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socket := filepath.Join(t.TempDir(), "clipperd.sock")
	server, err := ipc.NewServer(ctx, socket, d, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	server.Serve()

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		server.Close()
		cancel()
	})
	return client, store
}

func TestSubmitListDescribe(t *testing.T) {
	client, _ := startIPC(t)

	submitted, err := client.Submit(ipc.SubmitRequest{URL: "https://example.com/watch?v=abc"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submitted.Job.Status != "pending" {
		t.Fatalf("status = %s", submitted.Job.Status)
	}

	list, err := client.JobList(nil)
	if err != nil {
		t.Fatalf("JobList: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != submitted.Job.ID {
		t.Fatalf("jobs = %+v", list.Jobs)
	}

	described, err := client.JobDescribe(submitted.Job.ID)
	if err != nil {
		t.Fatalf("JobDescribe: %v", err)
	}
	if described.Job.URL != "https://example.com/watch?v=abc" {
		t.Fatalf("described = %+v", described.Job)
	}

	if _, err := client.JobDescribe("missing"); err == nil {
		t.Fatal("expected describe of unknown job to fail")
	}
}

func TestSubmitRejectsEmptyURL(t *testing.T) {
	client, _ := startIPC(t)
	if _, err := client.Submit(ipc.SubmitRequest{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestChapterSelectionRoundTrip(t *testing.T) {
	client, store := startIPC(t)

	submitted, err := client.Submit(ipc.SubmitRequest{URL: "https://example.com/watch?v=abc"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := store.UpdateWith(context.Background(), submitted.Job.ID, func(j *queue.Job) error {
		j.Status = queue.StatusChaptersReady
		return j.SetChapters([]queue.Chapter{
			{ID: "ch-1", Title: "Intro", Start: 0, End: 30, Duration: 30},
		})
	}); err != nil {
		t.Fatalf("seed chapters: %v", err)
	}

	chapters, err := client.Chapters(submitted.Job.ID)
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	if len(chapters.Chapters) != 1 || chapters.Chapters[0].ID != "ch-1" {
		t.Fatalf("chapters = %+v", chapters)
	}

	selected, err := client.Select(submitted.Job.ID, []string{"ch-1"}, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if selected.Job.Status != "processing" {
		t.Fatalf("post-select status = %s", selected.Job.Status)
	}

	if _, err := client.Select(submitted.Job.ID, []string{"ch-1"}, nil); err == nil {
		t.Fatal("expected re-selection to fail")
	} else if !strings.Contains(err.Error(), "selection is only allowed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	client, _ := startIPC(t)

	first, err := client.Submit(ipc.SubmitRequest{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := client.Submit(ipc.SubmitRequest{URL: "https://example.com/b"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	removed, err := client.Remove(first.Job.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed.Removed {
		t.Fatal("expected removal")
	}
	if again, err := client.Remove(first.Job.ID); err != nil || again.Removed {
		t.Fatalf("second remove = %+v, %v", again, err)
	}

	cleared, err := client.Clear(nil)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if cleared.Removed != 1 {
		t.Fatalf("cleared = %d", cleared.Removed)
	}
}

func TestHealthAndStatus(t *testing.T) {
	client, store := startIPC(t)

	if _, err := client.Submit(ipc.SubmitRequest{URL: "https://example.com/a"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job, err := client.Submit(ipc.SubmitRequest{URL: "https://example.com/b"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := store.UpdateWith(context.Background(), job.Job.ID, func(j *queue.Job) error {
		j.SetFailed("video download failed")
		return nil
	}); err != nil {
		t.Fatalf("fail job: %v", err)
	}

	health, err := client.Health()
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Failed != 1 {
		t.Fatalf("health = %+v", health)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Fatal("daemon not started, status says running")
	}
	if status.QueueStats["pending"] != 1 || status.QueueStats["failed"] != 1 {
		t.Fatalf("stats = %+v", status.QueueStats)
	}
	if len(status.StageHealth) != 4 {
		t.Fatalf("stage health = %+v", status.StageHealth)
	}
	if status.JobsDBPath == "" || status.LockPath == "" || status.PID == 0 {
		t.Fatalf("status paths = %+v", status)
	}
}

func TestRetryViaIPC(t *testing.T) {
	client, store := startIPC(t)

	job, err := client.Submit(ipc.SubmitRequest{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := client.Retry(job.Job.ID); err == nil {
		t.Fatal("expected retry of pending job to fail")
	}
	if _, err := store.UpdateWith(context.Background(), job.Job.ID, func(j *queue.Job) error {
		j.SetFailed("no speech detected")
		return nil
	}); err != nil {
		t.Fatalf("fail job: %v", err)
	}

	retried, err := client.Retry(job.Job.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Job.Status != "pending" || retried.Job.ErrorMessage != "" {
		t.Fatalf("retried job = %+v", retried.Job)
	}
}
