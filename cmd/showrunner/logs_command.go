package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var level string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent generation audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.logs(cmd.Context(), strings.TrimSpace(level), limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if len(resp.Logs) == 0 {
				fmt.Fprintln(out, "No log entries.")
				return nil
			}
			for _, entry := range resp.Logs {
				scene := ""
				if entry.SceneNumber != nil {
					scene = fmt.Sprintf(" scene=%d", *entry.SceneNumber)
				}
				line := fmt.Sprintf("%s %-5s %-12s%s %s",
					entry.CreatedAt.Local().Format(time.TimeOnly),
					strings.ToUpper(entry.Level),
					entry.Component,
					scene,
					entry.Message,
				)
				if entry.Error != "" {
					line += " | " + entry.Error
				}
				if colorize {
					switch entry.Level {
					case "error":
						line = ansiRed + line + ansiReset
					case "warn":
						line = ansiYellow + line + ansiReset
					}
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")
	cmd.Flags().StringVar(&level, "level", "", "Filter by log level (info, warn, error)")
	return cmd
}
