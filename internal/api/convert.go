package api

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"clipperd/internal/queue"
	"clipperd/internal/stage"
	"clipperd/internal/workflow"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) JobView {
	if job == nil {
		return JobView{}
	}

	view := JobView{
		ID:             job.ID,
		URL:            job.URL,
		Status:         string(job.Status),
		ErrorMessage:   job.ErrorMessage,
		MediaFile:      job.MediaFile,
		TranscriptFile: job.TranscriptFile,
		Progress: JobProgress{
			Stage:    job.ProgressStage,
			Percent:  job.ProgressPercent,
			Message:  job.ProgressMessage,
			StagePct: job.StagePercent,
		},
	}
	if !job.CreatedAt.IsZero() {
		view.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		view.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if job.StageStartedAt != nil {
		view.Progress.StageStart = job.StageStartedAt.UTC().Format(dateTimeFormat)
	}
	if meta, err := job.Metadata(); err == nil {
		view.Title = meta.Title
		view.DurationSeconds = meta.Duration
	}
	if raw := strings.TrimSpace(job.MetadataJSON); raw != "" {
		view.Metadata = json.RawMessage(raw)
	}
	if raw := strings.TrimSpace(job.OptionsJSON); raw != "" {
		view.Options = json.RawMessage(raw)
	}

	selected := map[string]bool{}
	if ids, err := job.SelectedChapterIDs(); err == nil && len(ids) > 0 {
		view.SelectedChapters = ids
		for _, id := range ids {
			selected[id] = true
		}
	}
	if chapters, err := job.Chapters(); err == nil && len(chapters) > 0 {
		view.Chapters = FromChapters(chapters, selected)
	}
	if clips, err := job.Clips(); err == nil && len(clips) > 0 {
		view.Clips = FromClips(clips)
	}
	return view
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []JobView {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromChapters converts chapters into API DTOs, marking the selected set.
func FromChapters(chapters []queue.Chapter, selected map[string]bool) []ChapterView {
	if len(chapters) == 0 {
		return nil
	}
	out := make([]ChapterView, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, ChapterView{
			ID:         ch.ID,
			Title:      ch.Title,
			Start:      ch.Start,
			End:        ch.End,
			Duration:   ch.Duration,
			Summary:    ch.Summary,
			Hooks:      ch.Hooks,
			Confidence: ch.Confidence,
			Selected:   selected[ch.ID],
		})
	}
	return out
}

// FromClips converts rendered clips into API DTOs.
func FromClips(clips []queue.Clip) []ClipView {
	if len(clips) == 0 {
		return nil
	}
	out := make([]ClipView, 0, len(clips))
	for _, clip := range clips {
		out = append(out, ClipView{
			Filename:  clip.Filename,
			Title:     clip.Title,
			ChapterID: clip.ChapterID,
			Start:     clip.Start,
			End:       clip.End,
			Duration:  clip.Duration,
			Thumbnail: clip.Thumbnail,
			Score:     clip.Score,
		})
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
