// Package main provides the YouTube knowledge-base CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"setsuna/internal/config"
	"setsuna/internal/knowledge"
)

var (
	cfg   *config.Config
	store *knowledge.Store

	globalOpts struct {
		verbose    bool
		configPath string
		storePath  string
	}
)

var rootCmd = &cobra.Command{
	Use:   "setsuna-tube",
	Short: "Collect and browse the YouTube metadata knowledge base",
	Long: `setsuna-tube fills the local knowledge base the assistant uses for
conversational grounding: playlist and video metadata from the YouTube
Data API, plus optional LLM summaries per video.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if globalOpts.verbose {
			level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level})))

		godotenv.Load()

		var err error
		cfg, err = config.Load(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		storePath := globalOpts.storePath
		if storePath == "" {
			storePath = cfg.Tube.StorePath
		}
		if err := config.EnsureDataDir(); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}

		store, err = knowledge.Open(storePath)
		if err != nil {
			return fmt.Errorf("failed to open knowledge base: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable info logging")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.configPath, "config", "c", "",
		"Config file path")
	rootCmd.PersistentFlags().StringVar(&globalOpts.storePath, "store", "",
		"Knowledge base file (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
