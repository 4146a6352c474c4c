package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipperd/internal/config"
	"clipperd/internal/logging"
	"clipperd/internal/progress"
	"clipperd/internal/queue"
	"clipperd/internal/selection"
	"clipperd/internal/services"
)

// Service exposes job operations as API DTOs. It is the single entry point
// shared by the HTTP handlers and the IPC server so both surfaces behave
// identically.
type Service struct {
	cfg     *config.Config
	store   *queue.Store
	gate    *selection.Gate
	tracker *progress.Tracker
	logger  *slog.Logger
}

// NewService constructs a Service around the store and selection gate. The
// tracker is optional; without it Describe omits remaining-time estimates.
func NewService(cfg *config.Config, store *queue.Store, tracker *progress.Tracker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:     cfg,
		store:   store,
		gate:    selection.NewGate(store, logger),
		tracker: tracker,
		logger:  logger.With(logging.String(logging.FieldComponent, "api")),
	}
}

// Submit creates a new job for the given source URL.
func (s *Service) Submit(ctx context.Context, url string, opts queue.Options) (JobView, error) {
	job, err := s.store.NewJob(ctx, url, opts)
	if err != nil {
		return JobView{}, err
	}
	s.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("url", job.URL))
	return FromJob(job), nil
}

// List returns jobs filtered by status, oldest first.
func (s *Service) List(ctx context.Context, statuses ...queue.Status) ([]JobView, error) {
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Describe fetches a single job, attaching a remaining-time estimate when
// the job is inside a stage and enough history exists.
func (s *Service) Describe(ctx context.Context, id string) (*JobView, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	view := FromJob(job)
	if s.tracker != nil && job.IsProcessing() {
		if stageName, ok := stageNameForStatus(job.Status); ok {
			if remaining, ok := s.tracker.Estimate(stageName, job.StagePercent); ok {
				view.Progress.ETASeconds = int(remaining.Seconds())
				view.Progress.HasETA = true
			}
		}
	}
	return &view, nil
}

// Chapters returns the chapter proposals of a parked job.
func (s *Service) Chapters(ctx context.Context, id string) (ChapterListResponse, error) {
	chapters, err := s.gate.Chapters(ctx, id)
	if err != nil {
		return ChapterListResponse{}, err
	}
	return ChapterListResponse{JobID: id, Chapters: FromChapters(chapters, nil)}, nil
}

// Select accepts chapters for a parked job and queues it for rendering.
// A non-nil overrides replaces the job's render options for the remaining
// stages.
func (s *Service) Select(ctx context.Context, id string, chapterIDs []string, overrides *queue.Options) (*JobView, error) {
	job, err := s.gate.Select(ctx, id, chapterIDs, overrides)
	if err != nil {
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}

// Retry resets a failed job back to pending.
func (s *Service) Retry(ctx context.Context, id string) (*JobView, error) {
	job, err := s.store.RetryFailed(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job retried", logging.String(logging.FieldJobID, id))
	view := FromJob(job)
	return &view, nil
}

// Delete removes a job and its artifact directory. Deleting a job whose
// stage is still running is allowed; the workflow discards the in-flight
// result when it finds the row gone.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}
	s.removeArtifacts(id)
	s.logger.Info("job deleted", logging.String(logging.FieldJobID, id))
	return true, nil
}

// Clear removes jobs in the given statuses (all jobs when none are given)
// along with their artifact directories, returning how many were removed.
func (s *Service) Clear(ctx context.Context, statuses ...queue.Status) (int, error) {
	jobs, err := s.store.Clear(ctx, statuses...)
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		s.removeArtifacts(job.ID)
	}
	if len(jobs) > 0 {
		s.logger.Info("jobs cleared", logging.Int("count", len(jobs)))
	}
	return len(jobs), nil
}

// Stats returns queue summary counts keyed by status string.
func (s *Service) Stats(ctx context.Context) (QueueStatsResponse, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return QueueStatsResponse{}, err
	}
	return QueueStatsResponse{Counts: MergeQueueStats(stats)}, nil
}

// ClipPath resolves a rendered clip or thumbnail filename to its on-disk
// path. The filename must belong to the job's recorded clip set, which
// keeps path traversal out of the artifact directory.
func (s *Service) ClipPath(ctx context.Context, id, filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" || name != filepath.Base(name) {
		return "", services.Wrap(services.ErrValidation, "api", "resolve clip", "invalid clip filename", nil)
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if job == nil {
		return "", fmt.Errorf("job %s: %w", id, services.ErrNotFound)
	}
	clips, err := job.Clips()
	if err != nil {
		return "", err
	}
	for _, clip := range clips {
		if clip.Filename == name || (clip.Thumbnail != "" && clip.Thumbnail == name) {
			path := filepath.Join(queue.ArtifactRoot(s.cfg.JobsRoot(), job.ID), name)
			if _, err := os.Stat(path); err != nil {
				return "", fmt.Errorf("clip %s: %w", name, services.ErrNotFound)
			}
			return path, nil
		}
	}
	return "", fmt.Errorf("clip %s: %w", name, services.ErrNotFound)
}

func (s *Service) removeArtifacts(id string) {
	root := queue.ArtifactRoot(s.cfg.JobsRoot(), id)
	if err := os.RemoveAll(root); err != nil {
		s.logger.Warn("failed to remove job artifacts",
			logging.String(logging.FieldJobID, id),
			logging.Error(err))
	}
}

func stageNameForStatus(status queue.Status) (string, bool) {
	switch status {
	case queue.StatusDownloading:
		return progress.StageDownload, true
	case queue.StatusTranscribing:
		return progress.StageTranscribe, true
	case queue.StatusAnalyzing:
		return progress.StageAnalyze, true
	case queue.StatusProcessing:
		return progress.StageRender, true
	default:
		return "", false
	}
}
