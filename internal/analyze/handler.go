package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"clipperd/internal/config"
	"clipperd/internal/logging"
	"clipperd/internal/progress"
	"clipperd/internal/queue"
	"clipperd/internal/services"
	"clipperd/internal/services/llm"
	"clipperd/internal/stage"
	"clipperd/internal/transcribe"
)

// Handler runs the analysis stage.
type Handler struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client ChatCompleter
}

// NewHandler constructs the analysis handler. The LLM client is only built
// when an API key is configured.
func NewHandler(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Handler {
	var client ChatCompleter
	if cfg.AI.APIKey != "" {
		client = llm.NewClient(llm.Config{
			APIKey:         cfg.AI.APIKey,
			BaseURL:        cfg.AI.BaseURL,
			Model:          cfg.AI.Model,
			Referer:        cfg.AI.Referer,
			Title:          cfg.AI.Title,
			TimeoutSeconds: cfg.AI.TimeoutSeconds,
		})
	}
	return NewHandlerWithClient(cfg, store, logger, client)
}

// NewHandlerWithClient allows injecting the LLM client (used in tests).
func NewHandlerWithClient(cfg *config.Config, store *queue.Store, logger *slog.Logger, client ChatCompleter) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "analyze"))
	}
	return &Handler{store: store, cfg: cfg, logger: stageLogger, client: client}
}

func (h *Handler) Prepare(ctx context.Context, job *queue.Job) error {
	if job.TranscriptFile == "" {
		return services.Wrap(
			services.ErrInvalidState,
			"analyze",
			"check transcript",
			"job has no transcript file",
			nil,
		)
	}
	job.BeginStage(progress.StageAnalyze, "Starting analysis")
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)

	content, err := os.ReadFile(job.TranscriptFile)
	if err != nil {
		return services.Wrap(services.ErrAnalysis, "analyze", "read transcript", "failed to read transcript file", err)
	}
	cues := transcribe.ParseSRT(string(content))
	if len(cues) == 0 {
		return services.Wrap(services.ErrAnalysis, "analyze", "parse transcript", "no speech detected", nil)
	}

	opts, err := job.Options()
	if err != nil {
		return services.Wrap(services.ErrAnalysis, "analyze", "decode options", "failed to decode job options", err)
	}
	meta, err := job.Metadata()
	if err != nil {
		return services.Wrap(services.ErrAnalysis, "analyze", "decode metadata", "failed to decode job metadata", err)
	}

	h.persistProgress(ctx, job, 20, "Segmenting transcript")

	var chapters []queue.Chapter
	if opts.UseAI && h.client != nil {
		chapters, err = SegmentByLLM(ctx, h.client, cues, meta.Duration)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("llm analysis failed, falling back to rules", logging.Error(err))
			chapters = nil
		}
	}
	if len(chapters) == 0 {
		chapters = SegmentByRules(cues, opts.EnableAutoHook)
	}
	if len(chapters) == 0 {
		return services.Wrap(
			services.ErrAnalysis,
			"analyze",
			"segment transcript",
			"no chapters identified",
			nil,
		)
	}

	if err := job.SetChapters(chapters); err != nil {
		return services.Wrap(services.ErrAnalysis, "analyze", "store chapters", "generated chapters failed validation", err)
	}
	if err := h.writeChaptersArtifact(job, chapters); err != nil {
		return services.Wrap(services.ErrAnalysis, "analyze", "write chapters artifact", "failed to write chapters.json", err)
	}

	job.SetProgress(progress.StageAnalyze, "Analysis complete", 100, progress.Overall(progress.StageAnalyze, 100))
	logger.Info("analysis completed", logging.Int("chapter_count", len(chapters)))
	return nil
}

// HealthCheck verifies the analyzer's dependencies. The rule-based path has
// none; the LLM path is only probed when configured.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "analyze"
	if h.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if h.cfg.Output.UseAI && h.client == nil {
		return stage.Unhealthy(name, "use_ai enabled but no LLM client configured")
	}
	return stage.Healthy(name)
}

func (h *Handler) writeChaptersArtifact(job *queue.Job, chapters []queue.Chapter) error {
	artifactDir := queue.ArtifactRoot(h.cfg.JobsRoot(), job.ID)
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(map[string]any{"chapters": chapters}, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(artifactDir, "chapters.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func (h *Handler) persistProgress(ctx context.Context, job *queue.Job, stagePercent float64, message string) {
	logger := logging.WithContext(ctx, h.logger)
	copy := *job
	copy.SetProgress(progress.StageAnalyze, message, stagePercent, progress.Overall(progress.StageAnalyze, stagePercent))
	if err := h.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist analysis progress", logging.Error(err))
		return
	}
	*job = copy
}
