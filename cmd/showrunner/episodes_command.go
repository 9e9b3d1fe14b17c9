package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"showrunner/internal/api"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "List generated episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.episodes(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			printEpisodeList(cmd, resp)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum episodes to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Listing offset")

	cmd.AddCommand(newEpisodeShowCommand(ctx))
	return cmd
}

func newEpisodeShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <episode-number>",
		Short: "Show one episode with its scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || number <= 0 {
				return fmt.Errorf("invalid episode number %q", args[0])
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			detail, err := client.episode(cmd.Context(), number)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, detail)
			}
			printEpisodeDetail(cmd, detail)
			return nil
		},
	}
}

func printEpisodeList(cmd *cobra.Command, resp api.EpisodeListResponse) {
	out := cmd.OutOrStdout()
	if len(resp.Episodes) == 0 {
		fmt.Fprintln(out, "No episodes yet.")
		return
	}
	rows := make([][]string, 0, len(resp.Episodes))
	for _, episode := range resp.Episodes {
		state := "complete"
		if episode.Open {
			state = fmt.Sprintf("open (%d/%d scenes)", episode.CompletedScenes, episode.SceneCount)
		}
		rows = append(rows, []string{
			strconv.FormatInt(episode.EpisodeNumber, 10),
			truncate(episode.ArcSummary, 60),
			state,
			fmt.Sprintf("$%.2f", episode.TotalCost),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Episode", "Arc", "State", "Cost"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintf(out, "Showing %d of %d episodes\n", len(resp.Episodes), resp.Total)
}

func printEpisodeDetail(cmd *cobra.Command, detail *api.EpisodeDetail) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Episode %d\n", detail.EpisodeNumber)
	fmt.Fprintf(out, "  Arc: %s\n", detail.ArcSummary)
	if detail.GenerationCompletedAt != nil {
		fmt.Fprintf(out, "  Completed: %s (total cost $%.2f)\n",
			detail.GenerationCompletedAt.Local().Format(time.RFC1123), detail.TotalCost)
	} else {
		fmt.Fprintf(out, "  Open: %d of %d scenes rendered\n", detail.CompletedScenes, detail.SceneCount)
	}
	if len(detail.Scenes) == 0 {
		return
	}
	rows := make([][]string, 0, len(detail.Scenes))
	for _, scene := range detail.Scenes {
		state := "pending"
		if scene.Completed {
			state = "done"
		} else if scene.RetryCount > 0 {
			state = fmt.Sprintf("retrying (%d)", scene.RetryCount)
		}
		rows = append(rows, []string{
			strconv.FormatInt(scene.SceneNumber, 10),
			strconv.Itoa(scene.SceneInEpisode),
			truncate(scene.NarrativeSummary, 50),
			state,
			fmt.Sprintf("$%.2f", scene.GenerationCost),
			scene.VideoURL,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Scene", "#", "Summary", "State", "Cost", "Artifact"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func truncate(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-3]) + "..."
}
