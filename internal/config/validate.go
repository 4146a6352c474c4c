package config

import (
	"fmt"
	"strings"
)

var knownAspectRatios = map[string]struct{}{
	"9:16": {},
	"1:1":  {},
	"4:5":  {},
	"16:9": {},
}

var knownLogFormats = map[string]struct{}{
	"console": {},
	"text":    {},
	"json":    {},
}

// Validate checks configuration invariants that normalize cannot repair.
func (c *Config) Validate() error {
	if c.Paths.LibraryDir == "" {
		return fmt.Errorf("config: library_dir must not be empty")
	}
	if c.Paths.LogDir == "" {
		return fmt.Errorf("config: log_dir must not be empty")
	}
	if _, ok := knownAspectRatios[c.Output.AspectRatio]; !ok {
		return fmt.Errorf("config: unsupported aspect_ratio %q", c.Output.AspectRatio)
	}
	if c.Output.EnableProgressBar && !strings.HasPrefix(c.Output.ProgressBarColor, "#") {
		return fmt.Errorf("config: progress_bar_color must be a hex color, got %q", c.Output.ProgressBarColor)
	}
	if _, ok := knownLogFormats[strings.ToLower(c.Logging.Format)]; !ok {
		return fmt.Errorf("config: unsupported log format %q", c.Logging.Format)
	}
	if c.Output.UseAI && c.AI.APIKey == "" {
		return fmt.Errorf("config: output.use_ai requires ai.api_key")
	}
	return nil
}
