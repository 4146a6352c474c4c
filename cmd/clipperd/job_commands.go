package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"clipperd/internal/api"
	"clipperd/internal/ipc"
	"clipperd/internal/queue"
	"clipperd/internal/textutil"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		captionStyle  string
		aspectRatio   string
		useAI         bool
		autoHook      bool
		smartReframe  bool
		dynamicLayout bool
		progressBar   bool
		barColor      string
	)

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Submit a video URL for clipping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				opts := api.OptionsFromConfig(ctx.configValue())
				flags := cmd.Flags()
				if flags.Changed("caption-style") {
					opts.CaptionStyle = captionStyle
				}
				if flags.Changed("aspect-ratio") {
					opts.AspectRatio = aspectRatio
				}
				if flags.Changed("ai") {
					opts.UseAI = useAI
				}
				if flags.Changed("auto-hook") {
					opts.EnableAutoHook = autoHook
				}
				if flags.Changed("smart-reframe") {
					opts.EnableSmartReframe = smartReframe
				}
				if flags.Changed("dynamic-layout") {
					opts.EnableDynamicLayout = dynamicLayout
				}
				if flags.Changed("progress-bar") {
					opts.EnableProgressBar = progressBar
				}
				if flags.Changed("progress-bar-color") {
					opts.ProgressBarColor = barColor
				}

				resp, err := client.Submit(ipc.SubmitRequest{URL: args[0], Options: &opts})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s submitted\n", resp.Job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&captionStyle, "caption-style", "", "Caption style (default, bold, minimal)")
	cmd.Flags().StringVar(&aspectRatio, "aspect-ratio", "", "Output aspect ratio (9:16, 1:1, 4:5, 16:9)")
	cmd.Flags().BoolVar(&useAI, "ai", false, "Use AI-assisted chapter analysis")
	cmd.Flags().BoolVar(&autoHook, "auto-hook", false, "Surface hook lines from the transcript")
	cmd.Flags().BoolVar(&smartReframe, "smart-reframe", false, "Bias the crop toward the upper frame")
	cmd.Flags().BoolVar(&dynamicLayout, "dynamic-layout", false, "Enable dynamic caption layout")
	cmd.Flags().BoolVar(&progressBar, "progress-bar", false, "Overlay a progress bar on clips")
	cmd.Flags().StringVar(&barColor, "progress-bar-color", "", "Progress bar color (hex, e.g. #FF0000)")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobList(statuses)
				if err != nil {
					return err
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				rows := make([][]string, 0, len(resp.Jobs))
				for _, job := range resp.Jobs {
					rows = append(rows, []string{
						shortID(job.ID),
						truncate(displayTitle(job), 40),
						job.Status,
						fmt.Sprintf("%d%%", job.Progress.Percent),
						job.CreatedAt,
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Progress", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobDescribe(args[0])
				if err != nil {
					return err
				}
				job := resp.Job
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "ID:        %s\n", job.ID)
				fmt.Fprintf(stdout, "URL:       %s\n", job.URL)
				if job.Title != "" {
					fmt.Fprintf(stdout, "Title:     %s\n", job.Title)
				}
				if job.DurationSeconds > 0 {
					fmt.Fprintf(stdout, "Duration:  %s\n", textutil.FormatSeconds(job.DurationSeconds))
				}
				fmt.Fprintf(stdout, "Status:    %s\n", job.Status)
				fmt.Fprintf(stdout, "Progress:  %d%%", job.Progress.Percent)
				if job.Progress.Message != "" {
					fmt.Fprintf(stdout, " (%s)", job.Progress.Message)
				}
				fmt.Fprintln(stdout)
				if job.Progress.HasETA {
					fmt.Fprintf(stdout, "ETA:       %s\n", textutil.FormatSeconds(float64(job.Progress.ETASeconds)))
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(stdout, "Error:     %s\n", job.ErrorMessage)
				}
				if len(job.Chapters) > 0 {
					fmt.Fprintf(stdout, "Chapters:  %d proposed, %d selected\n", len(job.Chapters), len(job.SelectedChapters))
				}
				if len(job.Clips) > 0 {
					fmt.Fprintln(stdout, "Clips:")
					for _, clip := range job.Clips {
						fmt.Fprintf(stdout, "  %s (%s, score %d)\n", clip.Filename, textutil.FormatSeconds(clip.Duration), clip.Score)
					}
				}
				return nil
			})
		},
	}
}

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters <job-id>",
		Short: "List chapter proposals awaiting selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Chapters(args[0])
				if err != nil {
					return err
				}
				if len(resp.Chapters) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No chapters proposed")
					return nil
				}
				rows := make([][]string, 0, len(resp.Chapters))
				for _, ch := range resp.Chapters {
					hook := ""
					if len(ch.Hooks) > 0 {
						hook = truncate(ch.Hooks[0], 40)
					}
					rows = append(rows, []string{
						ch.ID,
						truncate(ch.Title, 32),
						textutil.FormatSeconds(ch.Start),
						textutil.FormatSeconds(ch.Duration),
						fmt.Sprintf("%.2f", ch.Confidence),
						hook,
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Start", "Length", "Confidence", "Hook"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				fmt.Fprintf(cmd.OutOrStdout(), "Select with: clipperd select %s <chapter-id>...\n", args[0])
				return nil
			})
		},
	}
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	var captionStyle string
	var aspectRatio string

	cmd := &cobra.Command{
		Use:   "select <job-id> <chapter-id>...",
		Short: "Accept chapters and queue the job for rendering",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				overrides, err := selectionOverrides(client, args[0], cmd.Flags(), captionStyle, aspectRatio)
				if err != nil {
					return err
				}
				resp, err := client.Select(args[0], args[1:], overrides)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s queued for rendering (%d chapters)\n",
					resp.Job.ID, len(resp.Job.SelectedChapters))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&captionStyle, "caption-style", "", "Override the caption style for rendering")
	cmd.Flags().StringVar(&aspectRatio, "aspect-ratio", "", "Override the output aspect ratio")
	return cmd
}

// selectionOverrides builds a replacement option set from the job's current
// snapshot plus any changed flags. Nil means keep the snapshot as is.
func selectionOverrides(client *ipc.Client, jobID string, flags *pflag.FlagSet, captionStyle, aspectRatio string) (*queue.Options, error) {
	if !flags.Changed("caption-style") && !flags.Changed("aspect-ratio") {
		return nil, nil
	}
	resp, err := client.JobDescribe(jobID)
	if err != nil {
		return nil, err
	}
	var opts queue.Options
	if len(resp.Job.Options) > 0 {
		if err := json.Unmarshal(resp.Job.Options, &opts); err != nil {
			return nil, fmt.Errorf("decode job options: %w", err)
		}
	}
	if flags.Changed("caption-style") {
		opts.CaptionStyle = captionStyle
	}
	if flags.Changed("aspect-ratio") {
		opts.AspectRatio = aspectRatio
	}
	return &opts, nil
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Retry a failed job from the beginning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Retry(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s reset to %s\n", resp.Job.ID, resp.Job.Status)
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a job and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Remove(args[0])
				if err != nil {
					return err
				}
				if !resp.Removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Job %s not found\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s deleted\n", args[0])
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var failed bool
	var completed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs and their artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				var statuses []string
				if failed {
					statuses = append(statuses, string(queue.StatusFailed))
				}
				if completed {
					statuses = append(statuses, string(queue.StatusCompleted))
				}
				resp, err := client.Clear(statuses)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", resp.Removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&failed, "failed", false, "Only clear failed jobs")
	cmd.Flags().BoolVar(&completed, "completed", false, "Only clear completed jobs")
	return cmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show aggregate queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				health, err := client.Health()
				if err != nil {
					return err
				}
				rows := [][]string{
					{"total", fmt.Sprintf("%d", health.Total)},
					{"pending", fmt.Sprintf("%d", health.Pending)},
					{"processing", fmt.Sprintf("%d", health.Processing)},
					{"awaiting input", fmt.Sprintf("%d", health.AwaitingInput)},
					{"completed", fmt.Sprintf("%d", health.Completed)},
					{"failed", fmt.Sprintf("%d", health.Failed)},
				}
				table := renderTable([]string{"Bucket", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func displayTitle(job ipc.JobView) string {
	if job.Title != "" {
		return job.Title
	}
	return job.URL
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return strings.TrimSpace(value[:max-3]) + "..."
}
