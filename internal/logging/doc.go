// Package logging builds slog loggers for the daemon and CLI and carries
// the standardized structured field vocabulary (job, stage, lane,
// correlation id) used across the pipeline.
package logging
