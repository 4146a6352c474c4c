package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipperd/internal/transcribe"
)

func TestWriteClipCaptionsRebasesTimestamps(t *testing.T) {
	cues := []transcribe.Cue{
		{Start: 0, End: 5, Text: "before the clip"},
		{Start: 32, End: 36, Text: "inside the clip"},
		{Start: 58, End: 65, Text: "straddles the end"},
		{Start: 70, End: 75, Text: "after the clip"},
	}

	path := filepath.Join(t.TempDir(), "clip.srt")
	count, err := WriteClipCaptions(cues, 30, 60, path)
	if err != nil {
		t.Fatalf("WriteClipCaptions: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read captions: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "00:00:02,000 --> 00:00:06,000") {
		t.Fatalf("inside cue not rebased:\n%s", text)
	}
	if !strings.Contains(text, "00:00:28,000 --> 00:00:30,000") {
		t.Fatalf("straddling cue not clamped:\n%s", text)
	}
	if strings.Contains(text, "before the clip") || strings.Contains(text, "after the clip") {
		t.Fatalf("out-of-range cues included:\n%s", text)
	}
}

func TestWriteClipCaptionsNoOverlap(t *testing.T) {
	cues := []transcribe.Cue{{Start: 0, End: 5, Text: "early"}}
	path := filepath.Join(t.TempDir(), "clip.srt")

	count, err := WriteClipCaptions(cues, 100, 130, path)
	if err != nil {
		t.Fatalf("WriteClipCaptions: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected no caption file")
	}
}

func TestSRTTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{2.5, "00:00:02,500"},
		{62.25, "00:01:02,250"},
		{3661.001, "01:01:01,001"},
	}
	for _, tc := range cases {
		if got := srtTimestamp(tc.seconds); got != tc.want {
			t.Errorf("srtTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
