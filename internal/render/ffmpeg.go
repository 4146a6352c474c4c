package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Renderer produces clip videos and thumbnails.
type Renderer interface {
	RenderClip(ctx context.Context, spec ClipSpec) error
	Thumbnail(ctx context.Context, input, output string, at float64) error
}

// FFmpeg shells out to the ffmpeg binary.
type FFmpeg struct {
	binary  string
	timeout time.Duration
}

// NewFFmpeg constructs an ffmpeg backed renderer.
func NewFFmpeg(binary string, timeout time.Duration) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary, timeout: timeout}
}

// Binary returns the configured ffmpeg command.
func (f *FFmpeg) Binary() string {
	return f.binary
}

// RenderClip cuts and re-encodes one clip according to the spec.
func (f *FFmpeg) RenderClip(ctx context.Context, spec ClipSpec) error {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	args := []string{
		"-y",
		"-ss", formatSeconds(spec.Start),
		"-t", formatSeconds(spec.Duration),
		"-i", spec.Input,
		"-vf", buildFilterChain(spec),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		spec.Output,
	}
	return f.run(ctx, args)
}

// Thumbnail extracts a single frame at the given offset.
func (f *FFmpeg) Thumbnail(ctx context.Context, input, output string, at float64) error {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	args := []string{
		"-y",
		"-ss", formatSeconds(at),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "3",
		output,
	}
	return f.run(ctx, args)
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.binary, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLines(output.String()))
	}
	return nil
}

func (f *FFmpeg) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, f.timeout)
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}

func lastLines(output string) string {
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
