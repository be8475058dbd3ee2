package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	cli "github.com/spf13/pflag"

	"setsuna/internal/bus"
	"setsuna/internal/config"
	"setsuna/internal/history"
	"setsuna/internal/tui"
)

func main() {
	configPath := cli.StringP("config", "c", "", "Config file path")
	follow := cli.BoolP("follow", "f", false, "Print the conversation log instead of opening the chat window")
	backlog := cli.IntP("backlog", "n", 50, "History entries to show on start")
	cli.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	hist, err := history.Open(cfg.Daemon.HistoryPath)
	if err != nil {
		slog.Error("failed to open history", "err", err)
		os.Exit(1)
	}
	defer hist.Close()

	if *follow {
		followLog(hist)
		return
	}

	client, err := bus.Dial("ws://" + cfg.Daemon.BusAddr + "/ws")
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot reach setsuna-daemon:", err)
		fmt.Fprintln(os.Stderr, "start it, or use --follow to read the log without a daemon")
		os.Exit(1)
	}
	defer client.Close()

	m := tui.New(cfg.Daemon.SocketPath, client, hist.Tail(*backlog))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		slog.Error("chat window failed", "err", err)
		os.Exit(1)
	}
}

// followLog tails the history file, printing each turn as the daemon
// appends it. Works without the daemon's event feed.
func followLog(hist *history.Store) {
	// one snapshot seeds both the backlog and the high-water mark, so
	// entries landing before the watcher starts are caught on the
	// first change signal
	seen := printNewEntries(os.Stdout, hist.All(), 0)

	watcher, err := history.Watch(hist)
	if err != nil {
		slog.Error("failed to watch history", "err", err)
		os.Exit(1)
	}
	defer watcher.Close()

	for range watcher.Changed() {
		seen = printNewEntries(os.Stdout, hist.All(), seen)
	}
}

// printNewEntries prints entries[seen:] and returns the new high-water
// mark. A shrunken slice means the log was cleared; printing restarts
// from the top.
func printNewEntries(out io.Writer, entries []history.Entry, seen int) int {
	if len(entries) < seen {
		seen = 0
	}
	for _, e := range entries[seen:] {
		who := "あなた"
		if e.Role == history.RoleAssistant {
			who = "せつな"
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", humanize.Time(e.Time()), who, e.Content)
	}
	return len(entries)
}
