package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Transcriber converts a media file into an SRT transcript on disk.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaFile, destDir string) (string, error)
}

// Whisper shells out to a Whisper-compatible CLI with SRT output.
type Whisper struct {
	binary  string
	model   string
	timeout time.Duration
}

// NewWhisper constructs a whisper backed transcriber.
func NewWhisper(binary, model string, timeout time.Duration) *Whisper {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "whisper"
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "base"
	}
	return &Whisper{binary: binary, model: model, timeout: timeout}
}

// Binary returns the configured whisper command.
func (w *Whisper) Binary() string {
	return w.binary
}

// Transcribe runs the CLI and returns the path of the generated SRT file.
func (w *Whisper) Transcribe(ctx context.Context, mediaFile, destDir string) (string, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		w.binary,
		"--model", w.model,
		"--output_format", "srt",
		"--output_dir", destDir,
		mediaFile,
	)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper: %w: %s", err, lastLines(output.String()))
	}

	base := strings.TrimSuffix(filepath.Base(mediaFile), filepath.Ext(mediaFile))
	transcript := filepath.Join(destDir, base+".srt")
	if _, err := os.Stat(transcript); err != nil {
		return "", fmt.Errorf("whisper: transcript %s not produced: %w", transcript, err)
	}
	return transcript, nil
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
