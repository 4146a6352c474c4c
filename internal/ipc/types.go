package ipc

import (
	"clipperd/internal/api"
	"clipperd/internal/queue"
)

// JobView mirrors the HTTP API job DTO for internal IPC callers.
type JobView = api.JobView

// ChapterView mirrors the HTTP API chapter DTO.
type ChapterView = api.ChapterView

// StageHealth describes readiness of a workflow stage.
type StageHealth = api.StageHealth

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running      bool               `json:"running"`
	QueueStats   map[string]int     `json:"queue_stats"`
	LastError    string             `json:"last_error"`
	LastJob      *JobView           `json:"last_job"`
	LockPath     string             `json:"lock_path"`
	JobsDBPath   string             `json:"jobs_db_path"`
	StageHealth  []StageHealth      `json:"stage_health"`
	Dependencies []DependencyStatus `json:"dependencies"`
	PID          int                `json:"pid"`
}

// SubmitRequest enqueues a new job. Options, when nil, fall back to the
// daemon's configured defaults.
type SubmitRequest struct {
	URL     string         `json:"url"`
	Options *queue.Options `json:"options,omitempty"`
}

// SubmitResponse contains the created job.
type SubmitResponse struct {
	Job JobView `json:"job"`
}

// JobListRequest filters job listing by status.
type JobListRequest struct {
	Statuses []string `json:"statuses"`
}

// JobListResponse contains job entries.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// JobDescribeRequest fetches a single job by id.
type JobDescribeRequest struct {
	ID string `json:"id"`
}

// JobDescribeResponse contains a single job.
type JobDescribeResponse struct {
	Job JobView `json:"job"`
}

// ChaptersRequest fetches chapter proposals of a parked job.
type ChaptersRequest struct {
	ID string `json:"id"`
}

// ChaptersResponse contains the chapter proposals.
type ChaptersResponse struct {
	JobID    string        `json:"job_id"`
	Chapters []ChapterView `json:"chapters"`
}

// SelectRequest accepts chapters for a parked job. A non-nil Options
// replaces the job's render options for the remaining stages.
type SelectRequest struct {
	ID         string         `json:"id"`
	ChapterIDs []string       `json:"chapter_ids"`
	Options    *queue.Options `json:"options,omitempty"`
}

// SelectResponse contains the job after selection.
type SelectResponse struct {
	Job JobView `json:"job"`
}

// RetryRequest resets a failed job back to pending.
type RetryRequest struct {
	ID string `json:"id"`
}

// RetryResponse contains the retried job.
type RetryResponse struct {
	Job JobView `json:"job"`
}

// RemoveRequest removes a job and its artifacts.
type RemoveRequest struct {
	ID string `json:"id"`
}

// RemoveResponse reports whether the job existed.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// ClearRequest removes jobs in the given statuses; empty means all.
type ClearRequest struct {
	Statuses []string `json:"statuses"`
}

// ClearResponse reports number of removed jobs.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// HealthRequest fetches aggregate queue diagnostics.
type HealthRequest struct{}

// HealthResponse reports queue health information.
type HealthResponse struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	Processing    int `json:"processing"`
	AwaitingInput int `json:"awaiting_input"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
}
