package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipperd/internal/logging"
	"clipperd/internal/queue"
	"clipperd/internal/services"
)

func (m *Manager) processJob(ctx context.Context, lane *laneState, laneLogger *slog.Logger, job *queue.Job) error {
	stg, ok := lane.stageForStatus(job.Status)
	if !ok {
		laneLogger.Warn("no stage configured for status", logging.String("status", string(job.Status)))
		m.waitForJobOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(ctx, requestID)
	stageCtx = services.WithJobID(stageCtx, job.ID)
	stageCtx = services.WithStage(stageCtx, stg.name)
	stageCtx = services.WithLane(stageCtx, lane.name)
	stageLogger := logging.WithContext(stageCtx, laneLogger)

	if err := m.transitionToActive(stageCtx, stg, job); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			stageLogger.Info("job removed before stage start, discarding",
				logging.String(logging.FieldEventType, "job_abandoned"),
			)
			m.discardAbandonedArtifacts(stageLogger, job.ID)
			return nil
		}
		stageLogger.Error("failed to mark job active", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, job)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, job *queue.Job) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("url", strings.TrimSpace(job.URL)),
	)

	if err := stg.handler.Prepare(ctx, job); err != nil {
		m.handleStageFailure(ctx, stageLogger, stg.name, job, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			stageLogger.Info("job removed during preparation, discarding",
				logging.String(logging.FieldEventType, "job_abandoned"),
			)
			m.discardAbandonedArtifacts(stageLogger, job.ID)
			return nil
		}
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, stg, job)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded) {
			stageLogger.Debug("stage interrupted by shutdown")
			return context.Canceled
		}
		m.handleStageFailure(ctx, stageLogger, stg.name, job, execErr)
		m.setLastError(execErr)
		return execErr
	}

	job.Status = stg.doneStatus
	job.LastHeartbeat = nil
	job.StageStartedAt = nil
	if job.Status == queue.StatusCompleted {
		job.SetCompleted()
	}
	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			// The job was deleted while the stage ran. The unit of work is
			// finished; discard the result instead of resurrecting the row.
			stageLogger.Info("job removed during stage, discarding result",
				logging.String(logging.FieldEventType, "job_abandoned"),
			)
			m.discardAbandonedArtifacts(stageLogger, job.ID)
			return nil
		}
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	m.tracker.Observe(stg.name, time.Since(stageStart))
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(job.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastJob(job)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, stg pipelineStage, job *queue.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := stg.handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

// discardAbandonedArtifacts removes the artifact directory of a job whose row
// vanished mid-stage. The stage may have re-created the directory after the
// delete's cascade ran, so it is swept again here.
func (m *Manager) discardAbandonedArtifacts(stageLogger *slog.Logger, jobID string) {
	root := queue.ArtifactRoot(m.cfg.JobsRoot(), jobID)
	if err := os.RemoveAll(root); err != nil {
		stageLogger.Warn("failed to remove artifacts of abandoned job", logging.Error(err))
	}
}

// transitionToActive claims the job for its stage by persisting the active
// status. Resumed jobs already carry it; pending jobs move into it here.
func (m *Manager) transitionToActive(ctx context.Context, stg pipelineStage, job *queue.Job) error {
	now := time.Now().UTC()
	job.Status = stg.activeStatus
	job.ErrorMessage = ""
	job.LastHeartbeat = &now
	if job.StageStartedAt == nil {
		job.StageStartedAt = &now
	}
	if err := m.store.Update(ctx, job); err != nil {
		return err
	}
	m.setLastJob(job)
	return nil
}

func (m *Manager) handleStageFailure(ctx context.Context, stageLogger *slog.Logger, stageName string, job *queue.Job, stageErr error) {
	message := services.Message(stageErr)
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("%s failed", stageName)
	}
	job.SetFailed(message)

	stageLogger.Error("stage failed",
		logging.Error(stageErr),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorKind, services.Kind(stageErr)),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldEventType, "stage_failure"),
	)

	if err := m.store.Update(ctx, job); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			stageLogger.Info("job removed during stage, discarding failure")
			m.discardAbandonedArtifacts(stageLogger, job.ID)
		case errors.Is(err, context.Canceled):
			stageLogger.Debug("shutdown in progress, could not persist stage failure")
		default:
			stageLogger.Error("failed to persist stage failure", logging.Error(err))
		}
		return
	}
	m.setLastJob(job)
}
