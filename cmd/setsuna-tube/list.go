package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"setsuna/internal/knowledge"
)

var listOpts struct {
	playlists bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored videos (or playlists with --playlists)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listOpts.playlists {
			for _, p := range store.Playlists() {
				fmt.Printf("%-36s %-50s %3d videos  %s\n",
					p.ID, truncate(p.Title, 50), p.ItemCount, humanize.Time(p.CollectedAt))
			}
			return nil
		}
		for _, v := range store.Videos() {
			mark := " "
			if v.Analysis != nil {
				mark = "*"
			}
			fmt.Printf("%s %-12s %-50s %-20s %s\n",
				mark, v.ID, truncate(v.Title, 50), truncate(v.ChannelTitle, 20),
				humanize.Time(v.CollectedAt))
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <video-id>",
	Short: "Show one video record in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := store.Video(args[0])
		if err != nil {
			return err
		}
		printVideo(v)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored videos by title, description or channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hits := store.Search(args[0])
		if len(hits) == 0 {
			fmt.Println("no matches")
			return nil
		}
		for _, v := range hits {
			fmt.Printf("%-12s %-50s %s\n", v.ID, truncate(v.Title, 50), v.ChannelTitle)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge-base counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		videos, playlists := store.Counts()
		fmt.Printf("store:     %s\n", store.Path())
		fmt.Printf("videos:    %d\n", videos)
		fmt.Printf("playlists: %d\n", playlists)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statusCmd)

	listCmd.Flags().BoolVar(&listOpts.playlists, "playlists", false,
		"List playlists instead of videos")
}

func printVideo(v knowledge.Video) {
	fmt.Printf("id:        %s\n", v.ID)
	fmt.Printf("title:     %s\n", v.Title)
	fmt.Printf("channel:   %s (%s)\n", v.ChannelTitle, v.ChannelID)
	fmt.Printf("published: %s (%s)\n", v.PublishedAt.Format("2006-01-02"), humanize.Time(v.PublishedAt))
	if v.Duration != "" {
		fmt.Printf("duration:  %s\n", v.Duration)
	}
	fmt.Printf("collected: %s\n", humanize.Time(v.CollectedAt))
	if v.Description != "" {
		fmt.Printf("\n%s\n", v.Description)
	}
	if v.Analysis != nil {
		fmt.Printf("\nsummary (%s, %s):\n%s\n",
			v.Analysis.Model, humanize.Time(v.Analysis.AnalyzedAt), v.Analysis.Summary)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
