package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clipperd/internal/config"
	"clipperd/internal/daemon"
	"clipperd/internal/ipc"
	"clipperd/internal/logging"
	"clipperd/internal/queue"
	"clipperd/internal/stage"
	"clipperd/internal/testsupport"
	"clipperd/internal/workflow"
)

type noopStage struct{ name string }

func (s noopStage) Prepare(context.Context, *queue.Job) error { return nil }
func (s noopStage) Execute(context.Context, *queue.Job) error { return nil }
func (s noopStage) HealthCheck(context.Context) stage.Health  { return stage.Healthy(s.name) }

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
}

// setupCLITestEnv serves the IPC socket from a daemon whose workers never
// start, so queue state only changes through commands under test.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(homeDir, ".config", "clipperd", "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.ConfigureStages(workflow.StageSet{
		Download:   noopStage{name: "download"},
		Transcribe: noopStage{name: "transcribe"},
		Analyze:    noopStage{name: "analyze"},
		Render:     noopStage{name: "render"},
	})

	d, err := daemon.New(cfg, store, logging.NewNop(), mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	server, err := ipc.NewServer(ctx, socketPath, d, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	server.Serve()

	t.Cleanup(func() {
		server.Close()
		cancel()
		d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     server,
		socketPath: socketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// seedChaptersReady parks a job with two proposed chapters.
func seedChaptersReady(t *testing.T, store *queue.Store) *queue.Job {
	t.Helper()
	ctx := context.Background()
	job, err := store.NewJob(ctx, "https://example.com/video", queue.Options{AspectRatio: "9:16"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	job.Status = queue.StatusChaptersReady
	if err := job.SetChapters([]queue.Chapter{
		{ID: "ch-1", Title: "Opening argument", Start: 0, End: 42, Duration: 42, Confidence: 0.9},
		{ID: "ch-2", Title: "Key takeaway", Start: 42, End: 95, Duration: 53, Confidence: 0.7},
	}); err != nil {
		t.Fatalf("SetChapters: %v", err)
	}
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return job
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
