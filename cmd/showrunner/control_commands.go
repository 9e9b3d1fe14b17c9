package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause generation after the current scene",
		RunE:  controlRunE(ctx, "pause", "Generation paused."),
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused series",
		RunE:  controlRunE(ctx, "resume", "Generation resumed."),
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Clear an error halt and retry the failed scene",
		RunE:  controlRunE(ctx, "retry", "Retry accepted; generation will continue."),
	}
}

func controlRunE(ctx *commandContext, verb, message string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		client, err := ctx.client()
		if err != nil {
			return err
		}
		resp, err := client.control(cmd.Context(), verb)
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, resp)
		}
		fmt.Fprintln(cmd.OutOrStdout(), message)
		return nil
	}
}
