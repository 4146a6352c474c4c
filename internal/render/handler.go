package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"clipperd/internal/config"
	"clipperd/internal/logging"
	"clipperd/internal/progress"
	"clipperd/internal/queue"
	"clipperd/internal/services"
	"clipperd/internal/stage"
	"clipperd/internal/textutil"
	"clipperd/internal/transcribe"
)

// defaultClipScore is assigned when the analyzer produced no confidence
// signal for a chapter.
const defaultClipScore = 75

// Handler runs the render stage.
type Handler struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	renderer Renderer
}

// NewHandler constructs the render handler with the default ffmpeg
// renderer.
func NewHandler(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Handler {
	renderer := NewFFmpeg(cfg.Tools.FFmpegBinary, time.Duration(cfg.Tools.RenderTimeout)*time.Second)
	return NewHandlerWithRenderer(cfg, store, logger, renderer)
}

// NewHandlerWithRenderer allows injecting the renderer (used in tests).
func NewHandlerWithRenderer(cfg *config.Config, store *queue.Store, logger *slog.Logger, renderer Renderer) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "render"))
	}
	return &Handler{store: store, cfg: cfg, logger: stageLogger, renderer: renderer}
}

func (h *Handler) Prepare(ctx context.Context, job *queue.Job) error {
	selected, err := job.SelectedChapters()
	if err != nil {
		return services.Wrap(services.ErrRender, "render", "resolve selection", "failed to resolve selected chapters", err)
	}
	if len(selected) == 0 {
		return services.Wrap(
			services.ErrInvalidState,
			"render",
			"check selection",
			"no chapters selected for rendering",
			nil,
		)
	}
	if job.MediaFile == "" {
		return services.Wrap(services.ErrInvalidState, "render", "check media", "job has no downloaded media file", nil)
	}
	if _, err := os.Stat(job.MediaFile); err != nil {
		return services.Wrap(
			services.ErrInvalidState,
			"render",
			"check media",
			fmt.Sprintf("media file %s is missing", job.MediaFile),
			err,
		)
	}
	job.BeginStage(progress.StageRender, "Starting render")
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)

	selected, err := job.SelectedChapters()
	if err != nil {
		return services.Wrap(services.ErrRender, "render", "resolve selection", "failed to resolve selected chapters", err)
	}
	opts, err := job.Options()
	if err != nil {
		return services.Wrap(services.ErrRender, "render", "decode options", "failed to decode job options", err)
	}

	cues := h.loadCues(ctx, job)
	artifactDir := queue.ArtifactRoot(h.cfg.JobsRoot(), job.ID)
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return services.Wrap(services.ErrRender, "render", "ensure artifact dir", "failed to create job artifact directory", err)
	}

	clips := make([]queue.Clip, 0, len(selected))
	for i, chapter := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}

		baseName := clipBaseName(i+1, chapter)
		clipPath := filepath.Join(artifactDir, baseName+".mp4")
		thumbPath := filepath.Join(artifactDir, baseName+".jpg")

		if _, statErr := os.Stat(clipPath); statErr == nil {
			logger.Info("clip already rendered", logging.String("clip", baseName+".mp4"))
			clips = append(clips, buildClip(baseName, thumbPath, chapter))
			h.persistProgress(ctx, job, clipProgress(i+1, len(selected)), fmt.Sprintf("Rendered %d of %d clips", i+1, len(selected)))
			continue
		}

		spec := ClipSpec{
			Input:            job.MediaFile,
			Output:           clipPath,
			Start:            chapter.Start,
			Duration:         chapter.Duration,
			AspectRatio:      opts.AspectRatio,
			CaptionStyle:     opts.CaptionStyle,
			SmartReframe:     opts.EnableSmartReframe,
			DynamicLayout:    opts.EnableDynamicLayout,
			ProgressBar:      opts.EnableProgressBar,
			ProgressBarColor: opts.ProgressBarColor,
		}
		if len(cues) > 0 {
			captionPath := filepath.Join(artifactDir, baseName+".srt")
			count, capErr := WriteClipCaptions(cues, chapter.Start, chapter.End, captionPath)
			if capErr != nil {
				logger.Warn("failed to write clip captions", logging.Error(capErr))
			} else if count > 0 {
				spec.CaptionFile = captionPath
			}
		}

		if err := h.renderer.RenderClip(ctx, spec); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return services.Wrap(
				services.ErrRender,
				"render",
				"render clip",
				fmt.Sprintf("rendering clip %q failed", chapter.Title),
				err,
			)
		}
		if err := h.renderer.Thumbnail(ctx, clipPath, thumbPath, thumbnailOffset(chapter)); err != nil {
			logger.Warn("failed to extract thumbnail", logging.Error(err), logging.String("clip", baseName+".mp4"))
			thumbPath = ""
		}

		clips = append(clips, buildClip(baseName, thumbPath, chapter))
		h.persistProgress(ctx, job, clipProgress(i+1, len(selected)), fmt.Sprintf("Rendered %d of %d clips", i+1, len(selected)))
	}

	if err := job.SetClips(clips); err != nil {
		return services.Wrap(services.ErrRender, "render", "store clips", "failed to encode clip list", err)
	}
	job.SetProgress(progress.StageRender, "Render complete", 100, progress.Overall(progress.StageRender, 100))
	logger.Info("render completed", logging.Int("clip_count", len(clips)))
	return nil
}

// HealthCheck verifies the ffmpeg binary is available.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "render"
	if h.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if h.renderer == nil {
		return stage.Unhealthy(name, "renderer unavailable")
	}
	if ffmpeg, ok := h.renderer.(*FFmpeg); ok {
		if _, err := exec.LookPath(ffmpeg.Binary()); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("ffmpeg binary %q not found", ffmpeg.Binary()))
		}
	}
	return stage.Healthy(name)
}

func (h *Handler) loadCues(ctx context.Context, job *queue.Job) []transcribe.Cue {
	if job.TranscriptFile == "" {
		return nil
	}
	content, err := os.ReadFile(job.TranscriptFile)
	if err != nil {
		logging.WithContext(ctx, h.logger).Warn("transcript unavailable for captions", logging.Error(err))
		return nil
	}
	return transcribe.ParseSRT(string(content))
}

func clipBaseName(index int, chapter queue.Chapter) string {
	token := textutil.SanitizeToken(chapter.Title)
	if token == "unknown" {
		token = chapter.ID
	}
	return fmt.Sprintf("clip-%02d-%s", index, token)
}

func buildClip(baseName, thumbPath string, chapter queue.Chapter) queue.Clip {
	score := defaultClipScore
	if chapter.Confidence > 0 {
		score = int(chapter.Confidence * 100)
	}
	thumbnail := ""
	if thumbPath != "" {
		thumbnail = filepath.Base(thumbPath)
	}
	return queue.Clip{
		Filename:  baseName + ".mp4",
		Title:     chapter.Title,
		ChapterID: chapter.ID,
		Start:     chapter.Start,
		End:       chapter.End,
		Duration:  chapter.Duration,
		Thumbnail: thumbnail,
		Score:     score,
	}
}

// thumbnailOffset picks a frame one second into the clip, clamped for very
// short chapters.
func thumbnailOffset(chapter queue.Chapter) float64 {
	if chapter.Duration < 2 {
		return chapter.Duration / 2
	}
	return 1
}

func clipProgress(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}

func (h *Handler) persistProgress(ctx context.Context, job *queue.Job, stagePercent float64, message string) {
	logger := logging.WithContext(ctx, h.logger)
	copy := *job
	copy.SetProgress(progress.StageRender, message, stagePercent, progress.Overall(progress.StageRender, stagePercent))
	if err := h.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist render progress", logging.Error(err))
		return
	}
	*job = copy
}
