package download

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clipperd/internal/queue"
	"clipperd/internal/stage"
)

// Fetcher resolves metadata for a video URL and downloads the media file.
type Fetcher interface {
	Probe(ctx context.Context, url string) (queue.Metadata, error)
	Fetch(ctx context.Context, url, destDir string, progress stage.ProgressFunc) (string, error)
}

// YtDlp shells out to the yt-dlp binary.
type YtDlp struct {
	binary  string
	timeout time.Duration
}

// NewYtDlp constructs a yt-dlp backed fetcher.
func NewYtDlp(binary string, timeout time.Duration) *YtDlp {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtDlp{binary: binary, timeout: timeout}
}

// Binary returns the configured yt-dlp command.
func (y *YtDlp) Binary() string {
	return y.binary
}

// Probe resolves title, duration, and video id without downloading.
func (y *YtDlp) Probe(ctx context.Context, url string) (queue.Metadata, error) {
	var meta queue.Metadata
	ctx, cancel := y.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.binary, "--dump-json", "--no-download", "--no-playlist", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return meta, fmt.Errorf("yt-dlp probe: %w: %s", err, tailOf(stderr.String()))
	}

	var payload struct {
		ID       string  `json:"id"`
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return meta, fmt.Errorf("yt-dlp probe: decode metadata: %w", err)
	}
	meta.VideoID = payload.ID
	meta.Title = payload.Title
	meta.Duration = payload.Duration
	return meta, nil
}

// Fetch downloads the media into destDir as source.<ext> and returns the
// resulting path. Download progress is relayed through the callback.
func (y *YtDlp) Fetch(ctx context.Context, url, destDir string, progress stage.ProgressFunc) (string, error) {
	ctx, cancel := y.withTimeout(ctx)
	defer cancel()

	outputTemplate := filepath.Join(destDir, "source.%(ext)s")
	cmd := exec.CommandContext(
		ctx,
		y.binary,
		"--no-playlist",
		"--newline",
		"--progress-template", "download:clipperd %(progress._percent_str)s",
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"--merge-output-format", "mp4",
		"-o", outputTemplate,
		url,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("yt-dlp fetch: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("yt-dlp fetch: start: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if percent, ok := parseProgressLine(scanner.Text()); ok && progress != nil {
			progress(percent, "Downloading media")
		}
	}

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("yt-dlp fetch: %w: %s", err, tailOf(stderr.String()))
	}

	matches, err := filepath.Glob(filepath.Join(destDir, "source.*"))
	if err != nil {
		return "", fmt.Errorf("yt-dlp fetch: locate output: %w", err)
	}
	for _, match := range matches {
		if !strings.HasSuffix(match, ".part") && !strings.HasSuffix(match, ".ytdl") {
			return match, nil
		}
	}
	return "", fmt.Errorf("yt-dlp fetch: no output file in %s", destDir)
}

func (y *YtDlp) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if y.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, y.timeout)
}

func parseProgressLine(line string) (float64, bool) {
	const marker = "clipperd "
	idx := strings.Index(line, marker)
	if idx < 0 {
		return 0, false
	}
	value := strings.TrimSpace(line[idx+len(marker):])
	value = strings.TrimSuffix(value, "%")
	percent, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}
	if percent < 0 || percent > 100 {
		return 0, false
	}
	return percent, true
}

func tailOf(output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return "<no output>"
	}
	lines := strings.Split(output, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, " | ")
}
