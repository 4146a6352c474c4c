package queue

import (
	"context"
	"fmt"
	"time"

	"clipperd/internal/services"
)

// Health summarizes queue state for status reporting.
type Health struct {
	Total         int
	Pending       int
	Processing    int
	AwaitingInput int
	Completed     int
	Failed        int
}

// Stats returns job counts keyed by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, err
		}
		stats[Status(statusStr)] = count
	}
	return stats, rows.Err()
}

// HealthSummary aggregates Stats into coarse buckets.
func (s *Store) HealthSummary(ctx context.Context) (Health, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return Health{}, err
	}
	health := Health{}
	for status, count := range stats {
		health.Total += count
		switch {
		case status == StatusPending:
			health.Pending += count
		case status == StatusChaptersReady:
			health.AwaitingInput += count
		case status == StatusCompleted:
			health.Completed += count
		case status == StatusFailed:
			health.Failed += count
		case IsProcessingStatus(status):
			health.Processing += count
		}
	}
	return health, nil
}

// UpdateHeartbeat records liveness for a job currently held by a worker.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx, `UPDATE jobs SET last_heartbeat = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("heartbeat for job %s: %w", id, services.ErrNotFound)
	}
	return nil
}

// ReclaimStale clears heartbeats on in-flight jobs whose holder stopped
// reporting. The status is left untouched so the persisted stage is
// re-entered on the next poll.
func (s *Store) ReclaimStale(ctx context.Context, timeout time.Duration) ([]*Job, error) {
	cutoff := time.Now().UTC().Add(-timeout).Format(time.RFC3339Nano)
	var statuses []Status
	for _, status := range allStatuses {
		if IsProcessingStatus(status) {
			statuses = append(statuses, status)
		}
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, 0, len(statuses)+1)
	args = append(args, cutoff)
	for _, status := range statuses {
		args = append(args, status)
	}

	query := `SELECT ` + jobColumns + ` FROM jobs
        WHERE last_heartbeat IS NOT NULL AND last_heartbeat < ?
          AND status IN (` + placeholders + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find stale jobs: %w", err)
	}
	defer rows.Close()

	var stale []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		stale = append(stale, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, job := range stale {
		if _, err := s.execWithRetry(ctx, `UPDATE jobs SET last_heartbeat = NULL WHERE id = ?`, job.ID); err != nil {
			return nil, fmt.Errorf("clear heartbeat for %s: %w", job.ID, err)
		}
		job.LastHeartbeat = nil
	}
	return stale, nil
}

// RetryFailed resets a failed job back to pending so the pipeline runs it
// again from the top.
func (s *Store) RetryFailed(ctx context.Context, id string) (*Job, error) {
	return s.UpdateWith(ctx, id, func(job *Job) error {
		if job.Status != StatusFailed {
			return fmt.Errorf("job %s is %s, not %s: %w", id, job.Status, StatusFailed, services.ErrInvalidState)
		}
		job.Status = StatusPending
		job.ErrorMessage = ""
		job.ProgressPercent = 0
		job.ProgressStage = ""
		job.StagePercent = 0
		job.ProgressMessage = ""
		job.StageStartedAt = nil
		job.LastHeartbeat = nil
		return nil
	})
}

// Clear deletes jobs in the given statuses and returns the removed rows so
// callers can clean up artifacts. With no statuses it clears everything.
func (s *Store) Clear(ctx context.Context, statuses ...Status) ([]*Job, error) {
	jobs, err := s.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if _, err := s.Remove(ctx, job.ID); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}
