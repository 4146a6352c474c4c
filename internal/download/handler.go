package download

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"clipperd/internal/config"
	"clipperd/internal/logging"
	"clipperd/internal/progress"
	"clipperd/internal/queue"
	"clipperd/internal/services"
	"clipperd/internal/stage"
)

// Handler runs the download stage.
type Handler struct {
	store   *queue.Store
	cfg     *config.Config
	logger  *slog.Logger
	fetcher Fetcher
}

// NewHandler constructs the download handler with the default yt-dlp
// fetcher.
func NewHandler(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Handler {
	fetcher := NewYtDlp(cfg.Tools.YtDlpBinary, time.Duration(cfg.Tools.DownloadTimeout)*time.Second)
	return NewHandlerWithFetcher(cfg, store, logger, fetcher)
}

// NewHandlerWithFetcher allows injecting the fetcher (used in tests).
func NewHandlerWithFetcher(cfg *config.Config, store *queue.Store, logger *slog.Logger, fetcher Fetcher) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "download"))
	}
	return &Handler{store: store, cfg: cfg, logger: stageLogger, fetcher: fetcher}
}

func (h *Handler) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)

	parsed, err := url.Parse(strings.TrimSpace(job.URL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return services.Wrap(
			services.ErrValidation,
			"download",
			"validate url",
			fmt.Sprintf("invalid video URL %q", job.URL),
			err,
		)
	}

	artifactDir := queue.ArtifactRoot(h.cfg.JobsRoot(), job.ID)
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"download",
			"ensure artifact dir",
			"failed to create job artifact directory; check library_dir permissions",
			err,
		)
	}

	job.BeginStage(progress.StageDownload, "Starting download")
	logger.Info("starting download", logging.String("url", job.URL))
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)

	if job.MediaFile != "" {
		if _, err := os.Stat(job.MediaFile); err == nil {
			logger.Info("media already downloaded", logging.String("media_file", job.MediaFile))
			job.SetProgress(progress.StageDownload, "Media already downloaded", 100, progress.Overall(progress.StageDownload, 100))
			return nil
		}
		job.MediaFile = ""
	}

	meta, err := h.fetcher.Probe(ctx, job.URL)
	if err != nil {
		return services.Wrap(
			services.ErrDownload,
			"download",
			"probe metadata",
			"could not resolve video metadata; check the URL and yt-dlp installation",
			err,
		)
	}
	if err := job.SetMetadata(meta); err != nil {
		return services.Wrap(services.ErrDownload, "download", "store metadata", "failed to encode video metadata", err)
	}
	h.persistProgress(ctx, job, 5, "Resolved video metadata")

	artifactDir := queue.ArtifactRoot(h.cfg.JobsRoot(), job.ID)
	mediaFile, err := h.fetcher.Fetch(ctx, job.URL, artifactDir, func(percent float64, message string) {
		h.persistProgress(ctx, job, percent, message)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(
			services.ErrDownload,
			"download",
			"fetch media",
			"video download failed",
			err,
		)
	}

	job.MediaFile = mediaFile
	job.SetProgress(progress.StageDownload, "Download complete", 100, progress.Overall(progress.StageDownload, 100))
	logger.Info("download completed",
		logging.String("media_file", mediaFile),
		logging.String("video_title", meta.Title),
	)
	return nil
}

// HealthCheck verifies the yt-dlp binary is available.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "download"
	if h.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if h.fetcher == nil {
		return stage.Unhealthy(name, "fetcher unavailable")
	}
	if ytdlp, ok := h.fetcher.(*YtDlp); ok {
		if _, err := exec.LookPath(ytdlp.Binary()); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("yt-dlp binary %q not found", ytdlp.Binary()))
		}
	}
	return stage.Healthy(name)
}

func (h *Handler) persistProgress(ctx context.Context, job *queue.Job, stagePercent float64, message string) {
	logger := logging.WithContext(ctx, h.logger)
	copy := *job
	copy.SetProgress(progress.StageDownload, message, stagePercent, progress.Overall(progress.StageDownload, stagePercent))
	if err := h.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist download progress", logging.Error(err))
		return
	}
	*job = copy
}
