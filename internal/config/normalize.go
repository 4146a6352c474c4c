package config

import (
	"os"
	"strings"
)

// normalize expands path fields and fills empty values with defaults so the
// rest of the program never re-checks for blanks.
func (c *Config) normalize() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(valueOr(c.Paths.LibraryDir, defaultLibraryDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(valueOr(c.Paths.LogDir, defaultLogDir)); err != nil {
		return err
	}
	c.Paths.APIBind = valueOr(c.Paths.APIBind, defaultAPIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)

	c.Output.CaptionStyle = valueOr(c.Output.CaptionStyle, defaultCaptionStyle)
	c.Output.AspectRatio = valueOr(c.Output.AspectRatio, defaultAspectRatio)
	c.Output.ProgressBarColor = valueOr(c.Output.ProgressBarColor, defaultProgressBarColor)

	c.AI.APIKey = strings.TrimSpace(c.AI.APIKey)
	if c.AI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.AI.APIKey = strings.TrimSpace(value)
		}
	}
	c.AI.BaseURL = valueOr(c.AI.BaseURL, defaultAIBaseURL)
	c.AI.Model = valueOr(c.AI.Model, defaultAIModel)
	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = defaultAITimeoutSecs
	}

	c.Tools.YtDlpBinary = valueOr(c.Tools.YtDlpBinary, "yt-dlp")
	c.Tools.FFmpegBinary = valueOr(c.Tools.FFmpegBinary, "ffmpeg")
	c.Tools.FFprobeBinary = valueOr(c.Tools.FFprobeBinary, "ffprobe")
	c.Tools.WhisperBinary = valueOr(c.Tools.WhisperBinary, "whisper")
	c.Tools.WhisperModel = valueOr(c.Tools.WhisperModel, defaultWhisperModel)
	if c.Tools.DownloadTimeout <= 0 {
		c.Tools.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Tools.TranscribeTimeout <= 0 {
		c.Tools.TranscribeTimeout = defaultTransTimeout
	}
	if c.Tools.RenderTimeout <= 0 {
		c.Tools.RenderTimeout = defaultRenderTimeout
	}

	if c.Workflow.QueuePollInterval < 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout < 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workflow.WorkerCount <= 0 {
		c.Workflow.WorkerCount = defaultWorkerCount
	}

	c.Logging.Format = valueOr(c.Logging.Format, defaultLogFormat)
	c.Logging.Level = valueOr(c.Logging.Level, defaultLogLevel)

	return nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
