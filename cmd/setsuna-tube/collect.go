package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"setsuna/internal/knowledge"
)

var collectOpts struct {
	video bool
}

var collectCmd = &cobra.Command{
	Use:   "collect <playlist-id|video-id>",
	Short: "Fetch metadata from the YouTube Data API into the knowledge base",
	Long: `Fetches a playlist (its record, every item's video id, and the full
metadata of every video) or, with --video, a single video. Requires a
YouTube Data API key via YOUTUBE_API_KEY or [tube] api_key.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().BoolVar(&collectOpts.video, "video", false,
		"Treat the argument as a single video id")
}

func runCollect(cmd *cobra.Command, args []string) error {
	col, err := knowledge.NewCollector(cfg.Tube.APIKey, store)
	if err != nil {
		return err
	}

	id := strings.TrimSpace(args[0])

	if collectOpts.video {
		v, err := col.CollectVideo(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("✅ collected video %s: %s\n", v.ID, v.Title)
		return nil
	}

	pl, err := col.CollectPlaylist(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Printf("✅ collected playlist %s: %s (%d videos)\n", pl.ID, pl.Title, len(pl.VideoIDs))
	return nil
}
