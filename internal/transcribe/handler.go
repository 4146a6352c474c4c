package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"clipperd/internal/config"
	"clipperd/internal/logging"
	"clipperd/internal/progress"
	"clipperd/internal/queue"
	"clipperd/internal/services"
	"clipperd/internal/stage"
)

// Handler runs the transcription stage.
type Handler struct {
	store       *queue.Store
	cfg         *config.Config
	logger      *slog.Logger
	transcriber Transcriber
}

// NewHandler constructs the transcription handler with the default whisper
// transcriber.
func NewHandler(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Handler {
	transcriber := NewWhisper(
		cfg.Tools.WhisperBinary,
		cfg.Tools.WhisperModel,
		time.Duration(cfg.Tools.TranscribeTimeout)*time.Second,
	)
	return NewHandlerWithTranscriber(cfg, store, logger, transcriber)
}

// NewHandlerWithTranscriber allows injecting the transcriber (used in
// tests).
func NewHandlerWithTranscriber(cfg *config.Config, store *queue.Store, logger *slog.Logger, transcriber Transcriber) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "transcribe"))
	}
	return &Handler{store: store, cfg: cfg, logger: stageLogger, transcriber: transcriber}
}

func (h *Handler) Prepare(ctx context.Context, job *queue.Job) error {
	if job.MediaFile == "" {
		return services.Wrap(
			services.ErrInvalidState,
			"transcribe",
			"check media",
			"job has no downloaded media file",
			nil,
		)
	}
	if _, err := os.Stat(job.MediaFile); err != nil {
		return services.Wrap(
			services.ErrInvalidState,
			"transcribe",
			"check media",
			fmt.Sprintf("media file %s is missing", job.MediaFile),
			err,
		)
	}
	job.BeginStage(progress.StageTranscribe, "Starting transcription")
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)

	transcript := job.TranscriptFile
	if transcript != "" {
		if _, err := os.Stat(transcript); err == nil {
			logger.Info("transcript already present", logging.String("transcript_file", transcript))
		} else {
			transcript = ""
		}
	}

	if transcript == "" {
		h.persistProgress(ctx, job, 10, "Transcribing audio")
		artifactDir := queue.ArtifactRoot(h.cfg.JobsRoot(), job.ID)
		path, err := h.transcriber.Transcribe(ctx, job.MediaFile, artifactDir)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return services.Wrap(
				services.ErrTranscription,
				"transcribe",
				"run whisper",
				"transcription failed",
				err,
			)
		}
		transcript = path
	}

	content, err := os.ReadFile(transcript)
	if err != nil {
		return services.Wrap(services.ErrTranscription, "transcribe", "read transcript", "failed to read transcript file", err)
	}
	cues := ParseSRT(string(content))
	if len(cues) == 0 {
		return services.Wrap(
			services.ErrTranscription,
			"transcribe",
			"validate transcript",
			"no speech detected",
			nil,
		)
	}

	job.TranscriptFile = transcript
	job.SetProgress(progress.StageTranscribe, "Transcription complete", 100, progress.Overall(progress.StageTranscribe, 100))
	logger.Info("transcription completed",
		logging.String("transcript_file", transcript),
		logging.Int("cue_count", len(cues)),
	)
	return nil
}

// HealthCheck verifies the whisper binary is available.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcribe"
	if h.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if h.transcriber == nil {
		return stage.Unhealthy(name, "transcriber unavailable")
	}
	if whisper, ok := h.transcriber.(*Whisper); ok {
		if _, err := exec.LookPath(whisper.Binary()); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("whisper binary %q not found", whisper.Binary()))
		}
	}
	return stage.Healthy(name)
}

func (h *Handler) persistProgress(ctx context.Context, job *queue.Job, stagePercent float64, message string) {
	logger := logging.WithContext(ctx, h.logger)
	copy := *job
	copy.SetProgress(progress.StageTranscribe, message, stagePercent, progress.Overall(progress.StageTranscribe, stagePercent))
	if err := h.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist transcription progress", logging.Error(err))
		return
	}
	*job = copy
}
