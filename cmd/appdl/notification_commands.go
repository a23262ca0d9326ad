package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"appdl/internal/api"
	"appdl/internal/apiclient"
)

func newNotificationsCommand(ctx *commandContext) *cobra.Command {
	var query apiclient.NotificationQuery

	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notes"},
		Short:   "Show the notification log, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.Notifications(cmd.Context(), query)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Notifications) == 0 {
					fmt.Fprintln(out, "No notifications")
				} else {
					fmt.Fprint(out, renderNotificationsTable(resp.Notifications, time.Now()))
				}
				fmt.Fprintf(out, "%d unread\n", resp.Unread)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query.Filter, "filter", "f", "", "all, unread, download, or a kind such as failed")
	cmd.Flags().StringVarP(&query.JobID, "job", "j", "", "Only notifications for this job id")
	cmd.Flags().StringVarP(&query.Search, "search", "q", "", "Case-insensitive text search")
	cmd.Flags().IntVarP(&query.Limit, "limit", "n", 0, "Maximum number of entries")
	return cmd
}

func renderNotificationsTable(notes []api.Notification, now time.Time) string {
	rows := make([][]string, 0, len(notes))
	for _, n := range notes {
		read := " "
		if !n.Read {
			read = "*"
		}
		job := "-"
		if n.JobID != "" {
			job = shortID(n.JobID)
		}
		rows = append(rows, []string{
			strconv.FormatInt(n.ID, 10),
			read,
			n.Kind,
			job,
			n.Title,
			n.Message,
			relativeTime(n.CreatedAt, now),
		})
	}
	return renderTable(
		[]string{"ID", "New", "Kind", "Job", "Title", "Message", "When"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func newReadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>...",
		Short: "Mark notifications as read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				for _, id := range ids {
					if err := client.MarkRead(cmd.Context(), id); err != nil {
						return fmt.Errorf("notification %d: %w", id, err)
					}
				}
				if !ctx.jsonOutput() {
					fmt.Fprintf(cmd.OutOrStdout(), "Marked %d notification(s) read\n", len(ids))
				}
				return nil
			})
		},
	}
}

func newReadAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				updated, err := client.MarkAllRead(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.MarkAllReadResponse{Updated: updated})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %d notification(s) read\n", updated)
				return nil
			})
		},
	}
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid notification id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
