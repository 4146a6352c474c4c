package queue_test

import (
	"strings"
	"testing"

	"clipperd/internal/queue"
)

func TestSetProgressIsMonotone(t *testing.T) {
	job := &queue.Job{Status: queue.StatusDownloading}

	job.SetProgress("download", "fetching media", 40, 10)
	if job.ProgressPercent != 10 {
		t.Fatalf("progress = %d, want 10", job.ProgressPercent)
	}

	// Stale reports never wind the displayed number back.
	job.SetProgress("download", "fetching media", 30, 7)
	if job.ProgressPercent != 10 {
		t.Fatalf("progress regressed to %d", job.ProgressPercent)
	}
	if job.StagePercent != 40 {
		t.Fatalf("stage percent regressed to %v", job.StagePercent)
	}

	job.SetProgress("download", "fetching media", 80, 20)
	if job.ProgressPercent != 20 || job.StagePercent != 80 {
		t.Fatalf("progress = %d/%v", job.ProgressPercent, job.StagePercent)
	}
}

func TestSetProgressClampsBelowHundred(t *testing.T) {
	job := &queue.Job{Status: queue.StatusProcessing}

	job.SetProgress("render", "encoding clips", 100, 150)
	if job.ProgressPercent != 99 {
		t.Fatalf("progress = %d, want 99", job.ProgressPercent)
	}

	job.SetCompleted()
	if job.ProgressPercent != 100 {
		t.Fatalf("completed progress = %d, want 100", job.ProgressPercent)
	}
	if job.Status != queue.StatusCompleted {
		t.Fatalf("status = %s", job.Status)
	}
}

func TestBeginStageResetsStageState(t *testing.T) {
	job := &queue.Job{
		Status:       queue.StatusTranscribing,
		ErrorMessage: "earlier attempt failed",
		StagePercent: 55,
	}

	job.BeginStage("transcribe", "transcribing audio")
	if job.StagePercent != 0 {
		t.Fatalf("stage percent = %v", job.StagePercent)
	}
	if job.ErrorMessage != "" {
		t.Fatalf("error message retained: %q", job.ErrorMessage)
	}
	if job.StageStartedAt == nil || job.LastHeartbeat == nil {
		t.Fatal("expected stage start and heartbeat timestamps")
	}
}

func TestSetFailedRecordsMessageVerbatim(t *testing.T) {
	job := &queue.Job{Status: queue.StatusAnalyzing}
	job.SetFailed("no speech detected")

	if job.Status != queue.StatusFailed {
		t.Fatalf("status = %s", job.Status)
	}
	if job.ErrorMessage != "no speech detected" {
		t.Fatalf("error = %q", job.ErrorMessage)
	}
}

func TestParseStatus(t *testing.T) {
	status, ok := queue.ParseStatus("chapters_ready")
	if !ok || status != queue.StatusChaptersReady {
		t.Fatalf("ParseStatus = %s, %v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestStatusPredicates(t *testing.T) {
	if !queue.IsProcessingStatus(queue.StatusDownloading) {
		t.Fatal("downloading should count as processing")
	}
	if queue.IsProcessingStatus(queue.StatusChaptersReady) {
		t.Fatal("chapters_ready holds no worker")
	}
	if !queue.IsTerminalStatus(queue.StatusCompleted) || !queue.IsTerminalStatus(queue.StatusFailed) {
		t.Fatal("completed and failed are terminal")
	}
	if queue.IsTerminalStatus(queue.StatusPending) {
		t.Fatal("pending is not terminal")
	}
}

func TestChapterValidate(t *testing.T) {
	valid := queue.Chapter{ID: "ch-1", Title: "Intro", Start: 0, End: 12.5, Duration: 12.5}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid chapter rejected: %v", err)
	}

	cases := []struct {
		name    string
		chapter queue.Chapter
	}{
		{"missing id", queue.Chapter{Start: 0, End: 5, Duration: 5}},
		{"end before start", queue.Chapter{ID: "ch-1", Start: 10, End: 5, Duration: 5}},
		{"duration mismatch", queue.Chapter{ID: "ch-1", Start: 0, End: 10, Duration: 3}},
		{"confidence out of range", queue.Chapter{ID: "ch-1", Start: 0, End: 10, Duration: 10, Confidence: 1.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.chapter.Validate(); err == nil {
				t.Fatalf("expected %s to be rejected", tc.name)
			}
		})
	}
}

func TestSelectedChaptersResolvesInOrder(t *testing.T) {
	job := &queue.Job{}
	chapters := []queue.Chapter{
		{ID: "ch-1", Title: "Intro", Start: 0, End: 30, Duration: 30},
		{ID: "ch-2", Title: "Middle", Start: 30, End: 90, Duration: 60},
		{ID: "ch-3", Title: "Outro", Start: 90, End: 120, Duration: 30},
	}
	if err := job.SetChapters(chapters); err != nil {
		t.Fatalf("SetChapters: %v", err)
	}
	if err := job.SetSelectedChapterIDs([]string{"ch-3", "ch-1"}); err != nil {
		t.Fatalf("SetSelectedChapterIDs: %v", err)
	}

	selected, err := job.SelectedChapters()
	if err != nil {
		t.Fatalf("SelectedChapters: %v", err)
	}
	if len(selected) != 2 || selected[0].ID != "ch-3" || selected[1].ID != "ch-1" {
		t.Fatalf("selected = %+v", selected)
	}
}

func TestSetChaptersRejectsInvalid(t *testing.T) {
	job := &queue.Job{}
	err := job.SetChapters([]queue.Chapter{{ID: "", Start: 0, End: 5, Duration: 5}})
	if err == nil {
		t.Fatal("expected invalid chapter to be rejected")
	}
	if !strings.Contains(err.Error(), "id") {
		t.Fatalf("unexpected error: %v", err)
	}
}
