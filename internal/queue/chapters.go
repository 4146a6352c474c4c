package queue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Chapter is a candidate highlight span proposed by the analyze stage.
// Chapters are created in bulk and immutable thereafter; the selection gate
// and render stage reference them by id.
type Chapter struct {
	ID         string   `json:"id"`
	Title      string   `json:"title,omitempty"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Duration   float64  `json:"duration"`
	Summary    string   `json:"summary,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Hooks      []string `json:"hooks,omitempty"`
}

// Validate checks chapter invariants: a non-empty id, 0 <= start < end, and
// duration equal to end-start.
func (c Chapter) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("chapter id must not be empty")
	}
	if c.Start < 0 {
		return fmt.Errorf("chapter %s: start %.3f must be >= 0", c.ID, c.Start)
	}
	if c.End <= c.Start {
		return fmt.Errorf("chapter %s: end %.3f must be after start %.3f", c.ID, c.End, c.Start)
	}
	if diff := c.Duration - (c.End - c.Start); diff > 1e-6 || diff < -1e-6 {
		return fmt.Errorf("chapter %s: duration %.3f does not equal end-start", c.ID, c.Duration)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("chapter %s: confidence %.3f outside [0,1]", c.ID, c.Confidence)
	}
	return nil
}

// Clip is a rendered output artifact tied to one accepted chapter.
type Clip struct {
	Filename  string  `json:"filename"`
	Title     string  `json:"title,omitempty"`
	ChapterID string  `json:"chapter_id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Score     int     `json:"score"`
}

// Options is the processing option snapshot captured at submission time.
// It is immutable for the life of the job so a run stays reproducible
// regardless of later configuration changes.
type Options struct {
	CaptionStyle        string `json:"caption_style"`
	AspectRatio         string `json:"aspect_ratio"`
	UseAI               bool   `json:"use_ai"`
	EnableAutoHook      bool   `json:"enable_auto_hook"`
	EnableSmartReframe  bool   `json:"enable_smart_reframe"`
	EnableDynamicLayout bool   `json:"enable_dynamic_layout"`
	EnableProgressBar   bool   `json:"enable_progress_bar"`
	ProgressBarColor    string `json:"progress_bar_color"`
}

// Metadata carries source details reported by the downloader.
type Metadata struct {
	Title    string  `json:"title,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	VideoID  string  `json:"video_id,omitempty"`
}

// Chapters decodes the job's chapter set. A job holds at most one chapter
// set, produced by its most recent analyze run.
func (j *Job) Chapters() ([]Chapter, error) {
	if strings.TrimSpace(j.ChaptersJSON) == "" {
		return nil, nil
	}
	var chapters []Chapter
	if err := json.Unmarshal([]byte(j.ChaptersJSON), &chapters); err != nil {
		return nil, fmt.Errorf("decode chapters: %w", err)
	}
	return chapters, nil
}

// SetChapters validates and encodes a chapter set onto the job.
func (j *Job) SetChapters(chapters []Chapter) error {
	for _, chapter := range chapters {
		if err := chapter.Validate(); err != nil {
			return err
		}
	}
	data, err := json.Marshal(chapters)
	if err != nil {
		return fmt.Errorf("encode chapters: %w", err)
	}
	j.ChaptersJSON = string(data)
	return nil
}

// Clips decodes the job's rendered clip set.
func (j *Job) Clips() ([]Clip, error) {
	if strings.TrimSpace(j.ClipsJSON) == "" {
		return nil, nil
	}
	var clips []Clip
	if err := json.Unmarshal([]byte(j.ClipsJSON), &clips); err != nil {
		return nil, fmt.Errorf("decode clips: %w", err)
	}
	return clips, nil
}

// SetClips encodes the rendered clip set onto the job.
func (j *Job) SetClips(clips []Clip) error {
	data, err := json.Marshal(clips)
	if err != nil {
		return fmt.Errorf("encode clips: %w", err)
	}
	j.ClipsJSON = string(data)
	return nil
}

// SelectedChapterIDs decodes the accepted chapter id subset, in selection
// order.
func (j *Job) SelectedChapterIDs() ([]string, error) {
	if strings.TrimSpace(j.SelectedJSON) == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(j.SelectedJSON), &ids); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	return ids, nil
}

// SetSelectedChapterIDs encodes the accepted chapter id subset.
func (j *Job) SetSelectedChapterIDs(ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	j.SelectedJSON = string(data)
	return nil
}

// SelectedChapters resolves the accepted subset against the chapter set,
// preserving selection order.
func (j *Job) SelectedChapters() ([]Chapter, error) {
	ids, err := j.SelectedChapterIDs()
	if err != nil {
		return nil, err
	}
	chapters, err := j.Chapters()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Chapter, len(chapters))
	for _, chapter := range chapters {
		byID[chapter.ID] = chapter
	}
	selected := make([]Chapter, 0, len(ids))
	for _, id := range ids {
		chapter, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("selected chapter %s not present on job %s", id, j.ID)
		}
		selected = append(selected, chapter)
	}
	return selected, nil
}

// Options decodes the render option snapshot.
func (j *Job) Options() (Options, error) {
	var opts Options
	if strings.TrimSpace(j.OptionsJSON) == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(j.OptionsJSON), &opts); err != nil {
		return Options{}, fmt.Errorf("decode options: %w", err)
	}
	return opts, nil
}

// SetOptions replaces the render option snapshot. The snapshot is written at
// submit and may only be replaced whole at the selection gate.
func (j *Job) SetOptions(opts Options) error {
	encoded, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	j.OptionsJSON = string(encoded)
	return nil
}

// Metadata decodes downloader-reported source metadata.
func (j *Job) Metadata() (Metadata, error) {
	var meta Metadata
	if strings.TrimSpace(j.MetadataJSON) == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(j.MetadataJSON), &meta); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}

// SetMetadata encodes downloader-reported source metadata.
func (j *Job) SetMetadata(meta Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	j.MetadataJSON = string(data)
	return nil
}

func encodeOptions(opts Options) (string, error) {
	data, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}
	return string(data), nil
}
