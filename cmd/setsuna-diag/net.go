package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"setsuna/internal/diag"
)

var hostipCmd = &cobra.Command{
	Use:   "hostip",
	Short: "Discover the Windows host IP from inside WSL2",
	Long: `Lists candidate addresses for the Windows host: the resolv.conf
nameserver and the default route gateway. Point VOICEVOX_URL at one of
these when the engine runs on the Windows side.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		candidates, err := diag.HostCandidates()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return err
		}
		for _, c := range candidates {
			fmt.Printf("✅ %-15s (%s)\n", c.Addr, c.Source)
		}
		return nil
	},
}

var probeOpts struct {
	timeout time.Duration
}

var probeCmd = &cobra.Command{
	Use:   "probe <host:port>",
	Short: "Try a raw TCP connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := args[0]
		latency, err := diag.Probe(addr, probeOpts.timeout)
		if err != nil {
			fmt.Printf("❌ %s unreachable: %v\n", addr, err)
			return err
		}
		fmt.Printf("✅ %s reachable in %s\n", addr, latency.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hostipCmd)
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().DurationVar(&probeOpts.timeout, "timeout", 3*time.Second,
		"Connection timeout")
}
