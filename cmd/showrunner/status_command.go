package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show series and daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.status(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			daemonKind := statusError
			daemonMsg := "not running"
			if status.Running {
				daemonKind = statusOK
				daemonMsg = fmt.Sprintf("pid %d", status.PID)
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", daemonKind, daemonMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("Series", statusKindFor(status.SystemStatus), prettyStatus(status.SystemStatus), colorize))
			fmt.Fprintln(out, renderStatusLine("Current episode", statusInfo,
				fmt.Sprintf("%d (scene %d)", status.CurrentEpisode, status.CurrentSceneInEpisode), colorize))
			fmt.Fprintln(out, renderStatusLine("Completed", statusInfo,
				fmt.Sprintf("%d episodes, %d scenes", status.TotalEpisodes, status.TotalScenes), colorize))
			if status.LastGeneratedAt != nil {
				fmt.Fprintln(out, renderStatusLine("Last generated", statusInfo,
					status.LastGeneratedAt.Local().Format(time.RFC1123), colorize))
			}
			if status.DatabasePath != "" {
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
			}
			return nil
		},
	}
}
