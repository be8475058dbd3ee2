package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"setsuna/internal/diag"
	"setsuna/internal/voicevox"
)

var voicevoxOpts struct {
	phrase       string
	listSpeakers bool
}

var voicevoxCmd = &cobra.Command{
	Use:   "voicevox",
	Short: "Check the VOICEVOX engine end to end",
	Long: `Checks /version and /speakers, then times a full audio_query +
synthesis round trip for a sample phrase.`,
	RunE: runVoicevox,
}

func init() {
	rootCmd.AddCommand(voicevoxCmd)

	voicevoxCmd.Flags().StringVar(&voicevoxOpts.phrase, "phrase", "こんにちは、せつなです",
		"Phrase used for the synthesis round trip")
	voicevoxCmd.Flags().BoolVar(&voicevoxOpts.listSpeakers, "speakers", false,
		"List every speaker and style id")
}

func runVoicevox(cmd *cobra.Command, args []string) error {
	client := voicevox.NewClient(cfg.Voicevox.URL, cfg.VoicevoxTimeout())

	fmt.Printf("engine: %s (style %d)\n", cfg.Voicevox.URL, cfg.Voicevox.StyleID)

	rep, err := diag.CheckVoicevox(cmd.Context(), client, cfg.Voicevox.StyleID, voicevoxOpts.phrase)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return err
	}

	fmt.Printf("✅ version %s\n", rep.Version)
	fmt.Printf("✅ %d speakers, %d styles\n", rep.SpeakerCount, rep.StyleCount)
	fmt.Printf("✅ audio_query in %s\n", rep.QueryTime.Round(time.Millisecond))
	fmt.Printf("✅ synthesis in %s (%s of WAV)\n",
		rep.SynthTime.Round(time.Millisecond), humanize.Bytes(uint64(rep.WAVBytes)))

	if voicevoxOpts.listSpeakers {
		speakers, err := client.Speakers(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range speakers {
			for _, st := range s.Styles {
				fmt.Printf("  %4d  %s (%s)\n", st.ID, s.Name, st.Name)
			}
		}
	}
	return nil
}
