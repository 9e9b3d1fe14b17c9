package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCharactersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "characters",
		Short: "List the canon character registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.characters(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			if len(resp.Characters) == 0 {
				fmt.Fprintln(out, "No characters yet.")
				return nil
			}
			rows := make([][]string, 0, len(resp.Characters))
			for _, character := range resp.Characters {
				rows = append(rows, []string{
					character.ID,
					character.Name,
					truncate(character.CanonicalState, 50),
					strconv.FormatInt(character.FirstAppearanceScene, 10),
					strconv.FormatInt(character.LastAppearanceScene, 10),
					strconv.Itoa(character.ImageVersion),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Name", "Canonical State", "First", "Last", "Image v"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}
