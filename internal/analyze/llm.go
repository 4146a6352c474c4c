package analyze

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"clipperd/internal/queue"
	"clipperd/internal/services/llm"
	"clipperd/internal/transcribe"
)

const chapterSystemPrompt = `You segment video transcripts into self-contained chapters for short vertical clips.
Respond with JSON only, in the form:
{"chapters":[{"title":"...","start":0.0,"end":42.5,"summary":"...","confidence":0.9,"hooks":["..."]}]}
Rules:
- start and end are seconds from the beginning of the video
- chapters must not overlap and must be in chronological order
- each chapter should stand on its own as a clip between 15 and 120 seconds
- confidence is between 0 and 1
- hooks are short attention-grabbing lines spoken in the chapter (max 3)`

// ChatCompleter is the slice of the LLM client the analyzer needs.
type ChatCompleter interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// SegmentByLLM asks the chat model for chapter boundaries over the
// transcript cues.
func SegmentByLLM(ctx context.Context, client ChatCompleter, cues []transcribe.Cue, videoDuration float64) ([]queue.Chapter, error) {
	if client == nil {
		return nil, fmt.Errorf("llm analyze: no client")
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("llm analyze: empty transcript")
	}

	content, err := client.CompleteJSON(ctx, chapterSystemPrompt, transcriptPrompt(cues))
	if err != nil {
		return nil, fmt.Errorf("llm analyze: %w", err)
	}

	var payload struct {
		Chapters []struct {
			Title      string   `json:"title"`
			Start      float64  `json:"start"`
			End        float64  `json:"end"`
			Summary    string   `json:"summary"`
			Confidence float64  `json:"confidence"`
			Hooks      []string `json:"hooks"`
		} `json:"chapters"`
	}
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return nil, fmt.Errorf("llm analyze: parse payload: %w", err)
	}
	if len(payload.Chapters) == 0 {
		return nil, fmt.Errorf("llm analyze: model returned no chapters")
	}

	chapters := make([]queue.Chapter, 0, len(payload.Chapters))
	for _, entry := range payload.Chapters {
		start, end := entry.Start, entry.End
		if start < 0 {
			start = 0
		}
		if videoDuration > 0 && end > videoDuration {
			end = videoDuration
		}
		if end <= start {
			continue
		}
		confidence := entry.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		chapters = append(chapters, queue.Chapter{
			Title:      strings.TrimSpace(entry.Title),
			Start:      start,
			End:        end,
			Duration:   end - start,
			Summary:    strings.TrimSpace(entry.Summary),
			Confidence: confidence,
			Hooks:      trimHooks(entry.Hooks),
		})
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("llm analyze: no usable chapters after validation")
	}

	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Start < chapters[j].Start })
	for i := range chapters {
		chapters[i].ID = fmt.Sprintf("ch-%d", i+1)
	}
	return chapters, nil
}

func transcriptPrompt(cues []transcribe.Cue) string {
	var b strings.Builder
	b.WriteString("Transcript with timestamps in seconds:\n")
	for _, cue := range cues {
		fmt.Fprintf(&b, "[%.1f-%.1f] %s\n", cue.Start, cue.End, cue.Text)
	}
	return b.String()
}

func trimHooks(hooks []string) []string {
	var trimmed []string
	for _, hook := range hooks {
		hook = strings.TrimSpace(hook)
		if hook == "" {
			continue
		}
		trimmed = append(trimmed, hook)
		if len(trimmed) == maxHooksPerChapter {
			break
		}
	}
	return trimmed
}
