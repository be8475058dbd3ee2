package main

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"setsuna/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("# config file: %s\n", config.ConfigPath())
		fmt.Printf("# data dir:    %s\n\n", config.DataDir())

		// keys stay out of the dump
		redacted := *cfg
		if redacted.Chat.APIKey != "" {
			redacted.Chat.APIKey = "<set>"
		}
		if redacted.Tube.APIKey != "" {
			redacted.Tube.APIKey = "<set>"
		}

		out, err := toml.Marshal(redacted)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
