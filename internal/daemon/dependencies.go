package daemon

import (
	"os/exec"
	"strings"

	"clipperd/internal/config"
)

// Dependency describes an external tool the pipeline relies on.
type Dependency struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckDependencies probes the configured external tools on PATH.
func CheckDependencies(cfg *config.Config) []Dependency {
	deps := []Dependency{
		{Name: "yt-dlp", Command: cfg.Tools.YtDlpBinary, Description: "video download"},
		{Name: "whisper", Command: cfg.Tools.WhisperBinary, Description: "speech transcription"},
		{Name: "ffmpeg", Command: cfg.Tools.FFmpegBinary, Description: "clip rendering"},
		{Name: "ffprobe", Command: cfg.Tools.FFprobeBinary, Description: "media inspection", Optional: true},
	}
	for i := range deps {
		deps[i].probe()
	}

	ai := Dependency{
		Name:        "openrouter",
		Command:     "",
		Description: "AI chapter analysis",
		Optional:    true,
	}
	if strings.TrimSpace(cfg.AI.APIKey) != "" {
		ai.Available = true
		ai.Detail = "api key configured"
	} else {
		ai.Detail = "api key not configured, rule-based analysis only"
	}
	return append(deps, ai)
}

func (d *Dependency) probe() {
	if strings.TrimSpace(d.Command) == "" {
		d.Detail = "binary not configured"
		return
	}
	path, err := exec.LookPath(d.Command)
	if err != nil {
		d.Detail = err.Error()
		return
	}
	d.Available = true
	d.Detail = path
}
