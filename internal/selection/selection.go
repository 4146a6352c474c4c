// Package selection implements the user gate between analysis and
// rendering.
//
// A job that reaches chapters_ready holds no worker and waits for an
// explicit chapter selection. The selection is validated as a whole set:
// one unknown chapter id rejects the entire request, and a job that has
// already moved past the gate cannot be re-selected.
package selection

import (
	"context"
	"fmt"
	"log/slog"

	"clipperd/internal/logging"
	"clipperd/internal/queue"
	"clipperd/internal/services"
)

// Gate exposes the chapter review operations.
type Gate struct {
	store  *queue.Store
	logger *slog.Logger
}

// NewGate constructs a selection gate over the job store.
func NewGate(store *queue.Store, logger *slog.Logger) *Gate {
	gateLogger := logger
	if gateLogger != nil {
		gateLogger = gateLogger.With(logging.String("component", "selection"))
	}
	return &Gate{store: store, logger: gateLogger}
}

// Chapters returns the chapter candidates for a job awaiting selection.
func (g *Gate) Chapters(ctx context.Context, jobID string) ([]queue.Chapter, error) {
	job, err := g.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, services.ErrNotFound)
	}
	if job.Status != queue.StatusChaptersReady {
		return nil, services.Wrap(
			services.ErrInvalidState,
			"selection",
			"list chapters",
			fmt.Sprintf("job is %s, chapters are only reviewable in %s", job.Status, queue.StatusChaptersReady),
			nil,
		)
	}
	chapters, err := job.Chapters()
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidState, "selection", "decode chapters", "stored chapters are unreadable", err)
	}
	return chapters, nil
}

// Select records the chosen chapter ids and moves the job to processing.
// A non-nil overrides replaces the job's render options snapshot for the
// remaining stages. The read, validation, and transition happen in one
// transaction so a concurrent delete or duplicate selection cannot race
// past the gate.
func (g *Gate) Select(ctx context.Context, jobID string, chapterIDs []string, overrides *queue.Options) (*queue.Job, error) {
	logger := logging.WithContext(ctx, g.logger)

	ids := dedupePreservingOrder(chapterIDs)
	if len(ids) == 0 {
		return nil, services.Wrap(
			services.ErrInvalidSelection,
			"selection",
			"validate selection",
			"at least one chapter must be selected",
			nil,
		)
	}

	job, err := g.store.UpdateWith(ctx, jobID, func(job *queue.Job) error {
		if job.Status != queue.StatusChaptersReady {
			return services.Wrap(
				services.ErrInvalidState,
				"selection",
				"validate state",
				fmt.Sprintf("job is %s, selection is only allowed in %s", job.Status, queue.StatusChaptersReady),
				nil,
			)
		}
		chapters, err := job.Chapters()
		if err != nil {
			return services.Wrap(services.ErrInvalidState, "selection", "decode chapters", "stored chapters are unreadable", err)
		}
		known := make(map[string]struct{}, len(chapters))
		for _, chapter := range chapters {
			known[chapter.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return services.Wrap(
					services.ErrInvalidSelection,
					"selection",
					"validate selection",
					fmt.Sprintf("unknown chapter id %q", id),
					nil,
				)
			}
		}
		if err := job.SetSelectedChapterIDs(ids); err != nil {
			return services.Wrap(services.ErrInvalidSelection, "selection", "store selection", "failed to encode selection", err)
		}
		if overrides != nil {
			if err := job.SetOptions(*overrides); err != nil {
				return services.Wrap(services.ErrInvalidSelection, "selection", "store selection", "failed to encode render options", err)
			}
		}
		job.Status = queue.StatusProcessing
		job.ProgressMessage = "Queued for rendering"
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("chapters selected",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("selected_count", len(ids)),
	)
	return job, nil
}

// dedupePreservingOrder drops repeated ids while keeping first-seen order.
func dedupePreservingOrder(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
