package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"appdl/internal/apiclient"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "media <id>",
		Short: "Show a library entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				item, err := client.Media(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, item)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s\n", item.Title)
				fmt.Fprintf(out, "  Path:     %s\n", item.Path)
				fmt.Fprintf(out, "  Type:     %s\n", item.Type)
				fmt.Fprintf(out, "  Size:     %s\n", formatSize(item.SizeBytes))
				fmt.Fprintf(out, "  Platform: %s\n", item.Platform)
				fmt.Fprintf(out, "  Source:   %s\n", item.SourceURL)
				fmt.Fprintf(out, "  SHA-256:  %s\n", item.Hash)
				return nil
			})
		},
	}
}
