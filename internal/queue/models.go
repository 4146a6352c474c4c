package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a clipping job.
type Status string

const (
	StatusPending       Status = "pending"
	StatusDownloading   Status = "downloading"
	StatusTranscribing  Status = "transcribing"
	StatusAnalyzing     Status = "analyzing"
	StatusChaptersReady Status = "chapters_ready"
	StatusProcessing    Status = "processing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusTranscribing,
	StatusAnalyzing,
	StatusChaptersReady,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDownloading:  {},
	StatusTranscribing: {},
	StatusAnalyzing:    {},
	StatusProcessing:   {},
}

// Job represents a clipping job persisted in SQLite.
type Job struct {
	ID              string
	URL             string
	Status          Status
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressPercent int
	ProgressStage   string
	StagePercent    float64
	ProgressMessage string
	MediaFile       string
	TranscriptFile  string
	MetadataJSON    string
	OptionsJSON     string
	ChaptersJSON    string
	SelectedJSON    string
	ClipsJSON       string
	StageStartedAt  *time.Time
	LastHeartbeat   *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminalStatus reports whether a status is final for the run.
func IsTerminalStatus(status Status) bool {
	return status == StatusCompleted || status == StatusFailed
}

// IsProcessing returns true when the job is actively inside a stage.
func (j Job) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// IsTerminal returns true for completed or failed jobs.
func (j Job) IsTerminal() bool {
	return IsTerminalStatus(j.Status)
}

// SetProgress updates the stage-local progress fields and raises the overall
// percent. The overall percent never decreases within a run, and is held
// below 100 until SetCompleted.
func (j *Job) SetProgress(stage, message string, stagePercent float64, overall int) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	if stagePercent > j.StagePercent {
		j.StagePercent = stagePercent
	}
	if overall > 99 {
		overall = 99
	}
	if overall > j.ProgressPercent {
		j.ProgressPercent = overall
	}
}

// BeginStage resets stage-local progress for a newly entered stage while
// keeping the overall percent monotone.
func (j *Job) BeginStage(stage, message string) {
	now := time.Now().UTC()
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.StagePercent = 0
	j.ErrorMessage = ""
	j.StageStartedAt = &now
	j.LastHeartbeat = &now
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressMessage = message
	j.ProgressStage = "Failed"
	j.LastHeartbeat = nil
	j.StageStartedAt = nil
}

// SetCompleted marks the job completed; completed is the only state with
// progress exactly 100.
func (j *Job) SetCompleted() {
	j.Status = StatusCompleted
	j.ProgressPercent = 100
	j.StagePercent = 100
	j.ProgressStage = "Completed"
	if strings.TrimSpace(j.ProgressMessage) == "" {
		j.ProgressMessage = "Completed"
	}
	j.LastHeartbeat = nil
	j.StageStartedAt = nil
}
