package analyze

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipperd/internal/queue"
	"clipperd/internal/transcribe"
)

const (
	// A silence this long between cues starts a new chapter.
	pauseThresholdSeconds = 2.5
	// Chapters are closed once they grow past this length even without a
	// pause.
	maxChapterSeconds = 120
	// Chapters shorter than this are merged into their neighbour.
	minChapterSeconds = 15
	// Confidence assigned to rule-based chapters; the heuristic has no
	// model signal to grade itself with.
	ruleConfidence = 0.5

	maxHooksPerChapter = 3
	maxHookLength      = 80
	maxTitleWords      = 6
)

var titleCaser = cases.Title(language.English)

// SegmentByRules derives chapters from cue timing alone: long pauses and a
// maximum chapter length define the boundaries.
func SegmentByRules(cues []transcribe.Cue, includeHooks bool) []queue.Chapter {
	if len(cues) == 0 {
		return nil
	}

	var groups [][]transcribe.Cue
	current := []transcribe.Cue{cues[0]}
	for _, cue := range cues[1:] {
		last := current[len(current)-1]
		pause := cue.Start - last.End
		length := last.End - current[0].Start
		if pause >= pauseThresholdSeconds || length >= maxChapterSeconds {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, cue)
	}
	groups = append(groups, current)
	groups = mergeShortGroups(groups)

	chapters := make([]queue.Chapter, 0, len(groups))
	for _, group := range groups {
		start := group[0].Start
		end := group[len(group)-1].End
		if end <= start {
			// A degenerate group carries no playable span.
			continue
		}
		chapter := queue.Chapter{
			ID:         fmt.Sprintf("ch-%d", len(chapters)+1),
			Title:      titleFromCues(group),
			Start:      start,
			End:        end,
			Duration:   end - start,
			Summary:    summaryFromCues(group),
			Confidence: ruleConfidence,
		}
		if includeHooks {
			chapter.Hooks = hooksFromCues(group)
		}
		chapters = append(chapters, chapter)
	}
	return chapters
}

// mergeShortGroups folds groups below the minimum chapter length into the
// preceding group so tiny fragments never become chapters.
func mergeShortGroups(groups [][]transcribe.Cue) [][]transcribe.Cue {
	var merged [][]transcribe.Cue
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		length := group[len(group)-1].End - group[0].Start
		if length < minChapterSeconds && len(merged) > 0 {
			prev := merged[len(merged)-1]
			merged[len(merged)-1] = append(prev, group...)
			continue
		}
		merged = append(merged, group)
	}
	return merged
}

func titleFromCues(cues []transcribe.Cue) string {
	words := strings.Fields(cues[0].Text)
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	title := strings.Join(words, " ")
	title = strings.Trim(title, ".,!?;: ")
	if title == "" {
		return "Untitled Chapter"
	}
	return titleCaser.String(strings.ToLower(title))
}

func summaryFromCues(cues []transcribe.Cue) string {
	text := transcribe.PlainText(cues)
	const limit = 200
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

// hooksFromCues picks short punchy lines usable as on-screen hook text.
func hooksFromCues(cues []transcribe.Cue) []string {
	var hooks []string
	for _, cue := range cues {
		text := strings.TrimSpace(cue.Text)
		if text == "" || len(text) > maxHookLength {
			continue
		}
		if strings.HasSuffix(text, "?") || strings.HasSuffix(text, "!") {
			hooks = append(hooks, text)
		}
		if len(hooks) == maxHooksPerChapter {
			break
		}
	}
	if len(hooks) == 0 && len(cues) > 0 {
		first := strings.TrimSpace(cues[0].Text)
		if first != "" && len(first) <= maxHookLength {
			hooks = append(hooks, first)
		}
	}
	return hooks
}
