package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"setsuna/internal/audio"
)

var audioOpts struct {
	recordPath string
	seconds    int
	fixed      bool
}

var audioCmd = &cobra.Command{
	Use:   "audio",
	Short: "List audio devices, optionally record a test clip",
	RunE:  runAudio,
}

func init() {
	rootCmd.AddCommand(audioCmd)

	audioCmd.Flags().StringVar(&audioOpts.recordPath, "record", "",
		"Record a test clip to this WAV file")
	audioCmd.Flags().IntVar(&audioOpts.seconds, "seconds", 5,
		"Maximum test clip length")
	audioCmd.Flags().BoolVar(&audioOpts.fixed, "fixed", false,
		"Record the whole window instead of stopping on silence")
}

func runAudio(cmd *cobra.Command, args []string) error {
	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		fmt.Printf("❌ portaudio init failed: %v\n", err)
		return err
	}
	defer rec.Close()

	devices, err := rec.Devices()
	if err != nil {
		fmt.Printf("❌ device listing failed: %v\n", err)
		return err
	}

	for _, d := range devices {
		marker := "  "
		if d.Default {
			marker = "✅"
		}
		fmt.Printf("%s %-40s in:%d out:%d\n", marker, d.Name, d.MaxInputs, d.MaxOutputs)
	}

	if audioOpts.recordPath == "" {
		return nil
	}

	fmt.Printf("recording up to %ds, speak now...\n", audioOpts.seconds)
	window := time.Duration(audioOpts.seconds) * time.Second
	var pcm []float32
	if audioOpts.fixed {
		pcm, err = rec.RecordUntil(nil, window)
	} else {
		pcm, err = rec.RecordAuto(nil, audio.RecordOptions{MaxDuration: window})
	}
	if err != nil {
		fmt.Printf("❌ recording failed: %v\n", err)
		return err
	}

	if err := audio.WriteWAV(audioOpts.recordPath, pcm, audio.SampleRate); err != nil {
		fmt.Printf("❌ wav write failed: %v\n", err)
		return err
	}

	dur := time.Duration(len(pcm)) * time.Second / audio.SampleRate
	fmt.Printf("✅ wrote %s (%s, %s)\n", audioOpts.recordPath,
		dur.Round(100*time.Millisecond), humanize.Comma(int64(len(pcm)))+" samples")
	return nil
}
