package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultNormalizes(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !filepath.IsAbs(cfg.Paths.LibraryDir) {
		t.Fatalf("expected absolute library dir, got %q", cfg.Paths.LibraryDir)
	}
	if cfg.Workflow.WorkerCount <= 0 {
		t.Fatal("expected positive worker count")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if path == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Output.AspectRatio != "9:16" {
		t.Fatalf("unexpected default aspect ratio %q", cfg.Output.AspectRatio)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
library_dir = "` + filepath.Join(dir, "lib") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[output]
aspect_ratio = "1:1"

[workflow]
worker_count = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Output.AspectRatio != "1:1" {
		t.Fatalf("override not applied: %q", cfg.Output.AspectRatio)
	}
	if cfg.Workflow.WorkerCount != 4 {
		t.Fatalf("worker count override not applied: %d", cfg.Workflow.WorkerCount)
	}
	if cfg.JobsRoot() != filepath.Join(dir, "lib", "jobs") {
		t.Fatalf("unexpected jobs root %q", cfg.JobsRoot())
	}
}

func TestValidateRejectsBadAspectRatio(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	cfg.Output.AspectRatio = "2:3"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported aspect ratio")
	}
}

func TestValidateRequiresAIKeyWhenUseAI(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	cfg.Output.UseAI = true
	cfg.AI.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when use_ai is set without an API key")
	}
}
