package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"appdl/internal/api"
	"appdl/internal/apiclient"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				job, err := client.Submit(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if wait {
					job, err = waitForJob(cmd.Context(), client, job, pollInterval, cmd.ErrOrStderr())
					if err != nil {
						return err
					}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				if !wait {
					fmt.Fprintf(out, "Queued %s (%s) as job %s\n", job.URL, job.PlatformName, job.ID)
					return nil
				}
				return printJobOutcome(out, job)
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish and show progress")
	cmd.Flags().DurationVar(&pollInterval, "poll", time.Second, "Polling interval while waiting")
	return cmd
}

func isTerminalStatus(status string) bool {
	switch status {
	case "completed", "failed", "cancelled":
		return true
	}
	return false
}

// waitForJob polls until job reaches a terminal status, rendering a
// progress bar on out.
func waitForJob(ctx context.Context, client *apiclient.Client, job api.Job, interval time.Duration, out io.Writer) (api.Job, error) {
	if interval <= 0 {
		interval = time.Second
	}
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(shortID(job.ID)+" "+job.Status),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	defer bar.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for !isTerminalStatus(job.Status) {
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
		next, err := client.Job(ctx, job.ID)
		if err != nil {
			return job, err
		}
		job = next
		bar.Describe(shortID(job.ID) + " " + job.Status)
		_ = bar.Set(job.Progress)
	}
	if job.Status == "completed" {
		_ = bar.Finish()
	}
	return job, nil
}

func printJobOutcome(out io.Writer, job api.Job) error {
	switch job.Status {
	case "completed":
		fmt.Fprintf(out, "Completed %s (%s, media %s)\n", jobTitle(job), formatSize(job.SizeBytes), job.MediaID)
		return nil
	case "cancelled":
		fmt.Fprintf(out, "Job %s was cancelled\n", job.ID)
		return nil
	default:
		return fmt.Errorf("job %s failed: %s: %s", job.ID, job.ErrorKind, job.ErrorMessage)
	}
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var platforms []string
	var limit int

	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"list"},
		Short:   "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				jobs, err := client.Jobs(cmd.Context(), apiclient.JobQuery{
					Statuses:  statuses,
					Platforms: platforms,
					Limit:     limit,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, jobs)
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				fmt.Fprint(out, renderJobsTable(jobs, time.Now()))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable or comma separated)")
	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "Filter by platform")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of jobs to show")
	return cmd
}

func renderJobsTable(jobs []api.Job, now time.Time) string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			shortID(job.ID),
			job.Status,
			job.PlatformName,
			jobTitle(job),
			jobProgress(job),
			fmt.Sprintf("%d", job.Attempt),
			relativeTime(job.UpdatedAt, now),
			jobDetail(job, now),
		})
	}
	return renderTable(
		[]string{"ID", "Status", "Platform", "Title", "Progress", "Attempt", "Updated", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func newJobCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				job, err := client.Job(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				printJob(cmd.OutOrStdout(), job, time.Now(), shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
}

func printJob(out io.Writer, job api.Job, now time.Time, colorize bool) {
	for _, line := range renderSectionHeader("Job "+job.ID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", statusKindForJob(job.Status), job.Status, colorize))
	fmt.Fprintln(out, renderStatusLine("URL", statusInfo, job.URL, colorize))
	fmt.Fprintln(out, renderStatusLine("Platform", statusInfo, job.PlatformName, colorize))
	if job.Title != "" {
		fmt.Fprintln(out, renderStatusLine("Title", statusInfo, job.Title, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Progress", statusInfo, jobProgress(job), colorize))
	fmt.Fprintln(out, renderStatusLine("Attempt", statusInfo,
		fmt.Sprintf("%d (%d automatic retries)", job.Attempt, job.AutoRetries), colorize))
	if job.ErrorKind != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, job.ErrorKind+": "+job.ErrorMessage, colorize))
	}
	if job.NextAttemptAt != "" && job.Status == "queued" {
		fmt.Fprintln(out, renderStatusLine("Next attempt", statusWarn, relativeTime(job.NextAttemptAt, now), colorize))
	}
	if job.MediaID != "" {
		fmt.Fprintln(out, renderStatusLine("Media", statusOK,
			fmt.Sprintf("%s (%s)", job.MediaID, formatSize(job.SizeBytes)), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Created", statusInfo, relativeTime(job.CreatedAt, now), colorize))
	fmt.Fprintln(out, renderStatusLine("Updated", statusInfo, relativeTime(job.UpdatedAt, now), colorize))
}

func newJobActionCommands(ctx *commandContext) []*cobra.Command {
	actions := []struct {
		name  string
		short string
		verb  string
	}{
		{"retry", "Re-queue a failed job", "re-queued"},
		{"cancel", "Cancel a queued, downloading or paused job", "cancelled"},
		{"pause", "Pause a downloading job (keeps its worker slot)", "paused"},
		{"resume", "Resume a paused job", "resumed"},
	}

	cmds := make([]*cobra.Command, 0, len(actions))
	for _, action := range actions {
		cmds = append(cmds, &cobra.Command{
			Use:   action.name + " <id>",
			Short: action.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withClient(func(client *apiclient.Client) error {
					job, err := client.JobAction(cmd.Context(), strings.TrimSpace(args[0]), action.name)
					if err != nil {
						return err
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, job)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Job %s %s (status: %s)\n", job.ID, action.verb, job.Status)
					return nil
				})
			},
		})
	}
	return cmds
}
