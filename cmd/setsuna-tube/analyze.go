package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"setsuna/internal/chat"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <video-id>",
	Short: "Attach an LLM summary to a stored video",
	Long: `Sends the video's title and description to the chat model and stores
the returned summary on the record. Requires OPENAI_API_KEY.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	v, err := store.Video(args[0])
	if err != nil {
		return err
	}

	if cfg.Chat.APIKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}
	client, err := chat.New(chat.Config{
		APIKey:    cfg.Chat.APIKey,
		Model:     cfg.Chat.Model,
		Persona:   cfg.Chat.Persona,
		MaxTurns:  cfg.Chat.MaxTurns,
		SocksAddr: cfg.Chat.SocksAddr,
	})
	if err != nil {
		return err
	}

	summary, err := client.Summarize(cmd.Context(), v.Title, v.Description)
	if err != nil {
		return err
	}

	if err := store.SetAnalysis(v.ID, summary, client.Model()); err != nil {
		return err
	}

	fmt.Printf("✅ %s\n\n%s\n", v.Title, summary)
	return nil
}
