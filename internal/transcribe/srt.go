package transcribe

import (
	"fmt"
	"strconv"
	"strings"
)

// Cue is a single subtitle entry from an SRT transcript.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// ParseSRT parses SubRip transcript content into cues. Malformed blocks are
// skipped rather than failing the whole transcript.
func ParseSRT(content string) []Cue {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	blocks := strings.Split(strings.TrimSpace(content), "\n\n")

	var cues []Cue
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}
		start, end, err := parseTimingLine(lines[1])
		if err != nil {
			continue
		}
		text := strings.TrimSpace(strings.Join(lines[2:], " "))
		if text == "" {
			continue
		}
		cues = append(cues, Cue{Index: index, Start: start, End: end, Text: text})
	}
	return cues
}

// PlainText joins cue texts into a single transcript string.
func PlainText(cues []Cue) string {
	parts := make([]string, 0, len(cues))
	for _, cue := range cues {
		parts = append(parts, cue.Text)
	}
	return strings.Join(parts, " ")
}

func parseTimingLine(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed timing line %q", line)
	}
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("cue must end after it starts: %q", line)
	}
	return start, end, nil
}

// parseTimestamp parses HH:MM:SS,mmm into seconds.
func parseTimestamp(value string) (float64, error) {
	value = strings.ReplaceAll(value, ",", ".")
	fields := strings.Split(value, ":")
	if len(fields) != 3 {
		return 0, fmt.Errorf("malformed timestamp %q", value)
	}
	hours, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", value)
	}
	minutes, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", value)
	}
	seconds, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", value)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}
