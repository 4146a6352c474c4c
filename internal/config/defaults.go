package config

const (
	defaultLibraryDir = "~/.local/share/clipperd/library"
	defaultLogDir     = "~/.local/share/clipperd/logs"
	defaultAPIBind    = "127.0.0.1:7489"

	defaultCaptionStyle     = "default"
	defaultAspectRatio      = "9:16"
	defaultProgressBarColor = "#FF0050"

	defaultAIBaseURL       = "https://openrouter.ai/api/v1/chat/completions"
	defaultAIModel         = "google/gemini-3-flash-preview"
	defaultAITimeoutSecs   = 60
	defaultWhisperModel    = "base"
	defaultDownloadTimeout = 1800
	defaultTransTimeout    = 3600
	defaultRenderTimeout   = 1800

	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultWorkerCount        = 2

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Output: Output{
			CaptionStyle:      defaultCaptionStyle,
			AspectRatio:       defaultAspectRatio,
			EnableProgressBar: true,
			ProgressBarColor:  defaultProgressBarColor,
		},
		AI: AI{
			BaseURL:        defaultAIBaseURL,
			Model:          defaultAIModel,
			TimeoutSeconds: defaultAITimeoutSecs,
		},
		Tools: Tools{
			YtDlpBinary:       "yt-dlp",
			FFmpegBinary:      "ffmpeg",
			FFprobeBinary:     "ffprobe",
			WhisperBinary:     "whisper",
			WhisperModel:      defaultWhisperModel,
			DownloadTimeout:   defaultDownloadTimeout,
			TranscribeTimeout: defaultTransTimeout,
			RenderTimeout:     defaultRenderTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			WorkerCount:        defaultWorkerCount,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
