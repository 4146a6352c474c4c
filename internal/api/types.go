package api

import (
	"encoding/json"

	"clipperd/internal/queue"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobView describes a clipping job in a transport-friendly format.
type JobView struct {
	ID               string          `json:"id"`
	URL              string          `json:"url"`
	Title            string          `json:"title,omitempty"`
	DurationSeconds  float64         `json:"durationSeconds,omitempty"`
	Status           string          `json:"status"`
	Progress         JobProgress     `json:"progress"`
	ErrorMessage     string          `json:"errorMessage,omitempty"`
	CreatedAt        string          `json:"createdAt,omitempty"`
	UpdatedAt        string          `json:"updatedAt,omitempty"`
	MediaFile        string          `json:"mediaFile,omitempty"`
	TranscriptFile   string          `json:"transcriptFile,omitempty"`
	Chapters         []ChapterView   `json:"chapters,omitempty"`
	SelectedChapters []string        `json:"selectedChapters,omitempty"`
	Clips            []ClipView      `json:"clips,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	Options          json.RawMessage `json:"options,omitempty"`
}

// JobProgress captures stage progress information for a job. ETASeconds is
// populated only while a stage is running and duration history exists for
// every remaining stage.
type JobProgress struct {
	Stage      string  `json:"stage,omitempty"`
	Percent    int     `json:"percent"`
	Message    string  `json:"message,omitempty"`
	ETASeconds int     `json:"etaSeconds,omitempty"`
	HasETA     bool    `json:"hasEta"`
	StageStart string  `json:"stageStart,omitempty"`
	StagePct   float64 `json:"stagePercent,omitempty"`
}

// ChapterView describes one proposed chapter awaiting selection.
type ChapterView struct {
	ID         string   `json:"id"`
	Title      string   `json:"title,omitempty"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Duration   float64  `json:"duration"`
	Summary    string   `json:"summary,omitempty"`
	Hooks      []string `json:"hooks,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Selected   bool     `json:"selected,omitempty"`
}

// ClipView describes one rendered clip artifact.
type ClipView struct {
	Filename  string  `json:"filename"`
	Title     string  `json:"title,omitempty"`
	ChapterID string  `json:"chapterId"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Score     int     `json:"score"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastJob     *JobView       `json:"lastJob,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	JobsDBPath   string             `json:"jobsDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// ChapterListResponse wraps the chapter proposals of a parked job.
type ChapterListResponse struct {
	JobID    string        `json:"jobId"`
	Chapters []ChapterView `json:"chapters"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// SubmitRequest carries a job submission.
type SubmitRequest struct {
	URL     string          `json:"url"`
	Options json.RawMessage `json:"options,omitempty"`
}

// SelectRequest carries the accepted chapter IDs for a parked job, plus an
// optional replacement set of render options.
type SelectRequest struct {
	ChapterIDs []string       `json:"chapterIds"`
	Options    *queue.Options `json:"options,omitempty"`
}
