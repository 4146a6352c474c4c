package render

import (
	"fmt"
	"os"
	"strings"

	"clipperd/internal/transcribe"
)

// WriteClipCaptions slices the transcript cues covering [start, end) into a
// clip-local SRT file with timestamps rebased to the clip start.
func WriteClipCaptions(cues []transcribe.Cue, start, end float64, path string) (int, error) {
	var b strings.Builder
	index := 0
	for _, cue := range cues {
		if cue.End <= start || cue.Start >= end {
			continue
		}
		cueStart := cue.Start - start
		if cueStart < 0 {
			cueStart = 0
		}
		cueEnd := cue.End - start
		if cueEnd > end-start {
			cueEnd = end - start
		}
		index++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", index, srtTimestamp(cueStart), srtTimestamp(cueEnd), cue.Text)
	}
	if index == 0 {
		return 0, nil
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return 0, fmt.Errorf("write captions: %w", err)
	}
	return index, nil
}

func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(seconds*1000 + 0.5)
	hours := millis / 3600000
	millis -= hours * 3600000
	minutes := millis / 60000
	millis -= minutes * 60000
	secs := millis / 1000
	millis -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
