package api

import (
	"clipperd/internal/config"
	"clipperd/internal/queue"
)

// OptionsFromConfig builds the default job options from configured output
// settings. Submissions may override individual fields.
func OptionsFromConfig(cfg *config.Config) queue.Options {
	return queue.Options{
		CaptionStyle:        cfg.Output.CaptionStyle,
		AspectRatio:         cfg.Output.AspectRatio,
		UseAI:               cfg.Output.UseAI,
		EnableAutoHook:      cfg.Output.EnableAutoHook,
		EnableSmartReframe:  cfg.Output.EnableSmartReframe,
		EnableDynamicLayout: cfg.Output.EnableDynamicLayout,
		EnableProgressBar:   cfg.Output.EnableProgressBar,
		ProgressBarColor:    cfg.Output.ProgressBarColor,
	}
}
