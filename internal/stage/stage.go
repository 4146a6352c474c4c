// Package stage defines the contract pipeline stages implement.
//
// A stage receives the persisted job, performs its work, and mutates the
// job in memory; the workflow manager persists the result and advances the
// status. Execute must be idempotent: a stage can be re-entered after a
// crash and has to detect work it already finished.
package stage

import (
	"context"

	"clipperd/internal/queue"
)

// Handler is implemented by each pipeline stage.
type Handler interface {
	// Prepare performs cheap validation and setup before Execute runs.
	Prepare(ctx context.Context, job *queue.Job) error
	// Execute performs the stage work and mutates the job in memory.
	Execute(ctx context.Context, job *queue.Job) error
	// HealthCheck reports whether the stage's external dependencies are
	// usable.
	HealthCheck(ctx context.Context) Health
}

// Health describes the outcome of a stage health check.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports a passing health check for the named stage.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a failing health check with detail for operators.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// ProgressFunc receives stage-local progress reports in the range 0-100.
type ProgressFunc func(percent float64, message string)
