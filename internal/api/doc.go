// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal queue models into transport-friendly DTOs
// that CLI and HTTP consumers can render without coupling to internal types.
//
// # Key Types
//
// JobView: transport representation of a job with progress, chapter and clip
// summaries, and an optional remaining-time estimate.
//
// WorkflowStatus: daemon running state, queue stats, stage health, and last job.
//
// DaemonStatus: aggregated runtime information including external dependencies.
//
// # Converters
//
// FromJob: queue.Job -> JobView with decoded chapters, selection, and clips.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// StageHealthSlice: deterministic ordering of stage health map.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (queue.Status) are exposed as lowercase strings. Timestamps use
// RFC3339 with milliseconds. Raw metadata is passed through as
// json.RawMessage to avoid double-encoding.
package api
