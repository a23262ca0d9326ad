package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"appdl/internal/api"
	"appdl/internal/apiclient"
	"appdl/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency and queue status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				health, err := client.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"status": status, "health": health})
				}
				out := cmd.OutOrStdout()
				printStatus(out, status, health, shouldColorize(out))
				return nil
			})
		},
	}
}

func printStatus(out io.Writer, status api.DaemonStatus, health api.HealthResponse, colorize bool) {
	wf := status.Workflow

	for _, line := range renderSectionHeader("System Status", colorize) {
		fmt.Fprintln(out, line)
	}
	daemonKind, daemonText := statusOK, fmt.Sprintf("Running (pid %d)", status.PID)
	if !status.Running {
		daemonKind, daemonText = statusError, "Not running"
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", daemonKind, daemonText, colorize))
	slotKind := statusInfo
	if wf.ActiveSlots >= wf.MaxConcurrent && wf.Waiting > 0 {
		slotKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Workers", slotKind,
		fmt.Sprintf("%d of %d busy, %d waiting (limit %d)", wf.ActiveSlots, wf.MaxConcurrent, wf.Waiting, wf.QueueLimit), colorize))
	if wf.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, wf.LastError, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Unread", statusInfo, fmt.Sprintf("%d notification(s)", wf.Unread), colorize))
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.QueueDBPath, colorize))
	fmt.Fprintln(out, renderStatusLine("Library", statusInfo, status.LibraryDir, colorize))
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Health", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range health.Checks {
		kind := statusOK
		if !check.OK {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range dependencyLines(status.Dependencies, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Queue Status", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := buildQueueStatusRows(wf.QueueStats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	var missing []string
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		if !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusError, strings.Join(missing, ", "), colorize))
	}
	return lines
}

// buildQueueStatusRows lists non-zero counts in lifecycle order.
func buildQueueStatusRows(stats map[string]int) [][]string {
	order := []queue.Status{
		queue.StatusQueued,
		queue.StatusDownloading,
		queue.StatusPaused,
		queue.StatusCompleted,
		queue.StatusFailed,
		queue.StatusCancelled,
	}
	rows := make([][]string, 0, len(order))
	for _, status := range order {
		count := stats[string(status)]
		if count == 0 {
			continue
		}
		label := string(status)
		rows = append(rows, []string{strings.ToUpper(label[:1]) + label[1:], fmt.Sprintf("%d", count)})
	}
	return rows
}
