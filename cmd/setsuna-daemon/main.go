package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"setsuna/internal/audio"
	"setsuna/internal/bus"
	"setsuna/internal/chat"
	"setsuna/internal/config"
	"setsuna/internal/daemon"
	"setsuna/internal/history"
	"setsuna/internal/ipc"
	"setsuna/internal/stt"
	"setsuna/internal/voicevox"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configPath := cli.StringP("config", "c", "", "Config file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	noDuck := cli.Bool("no-duck", false, "Disable ducking other audio while listening")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if cfg.Chat.APIKey == "" {
		log.Error("OPENAI_API_KEY not set")
		os.Exit(1)
	}

	log.Debug("Loaded config")

	chatClient, err := chat.New(chat.Config{
		APIKey:    cfg.Chat.APIKey,
		Model:     cfg.Chat.Model,
		Persona:   cfg.Chat.Persona,
		MaxTurns:  cfg.Chat.MaxTurns,
		SocksAddr: cfg.Chat.SocksAddr,
	})
	if err != nil {
		log.Error("Failed to init chat client", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded chat client")

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	log.Debug("Loaded recorder")

	transcriber, err := stt.NewTranscriber(cfg.Audio.WhisperModel)
	if err != nil {
		log.Error("Failed to init whisper", "err", err)
		os.Exit(1)
	}
	defer transcriber.Close()

	log.Debug("Loaded whisper")

	if err := config.EnsureDataDir(); err != nil {
		log.Error("Failed to create data dir", "err", err)
		os.Exit(1)
	}

	hist, err := history.Open(cfg.Daemon.HistoryPath)
	if err != nil {
		log.Error("Failed to open history", "err", err)
		os.Exit(1)
	}
	defer hist.Close()

	log.Debug("Loaded history", "entries", hist.Len())

	hub := bus.NewHub()
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	go func() {
		if err := http.ListenAndServe(cfg.Daemon.BusAddr, mux); err != nil {
			log.Error("Bus server failed", "addr", cfg.Daemon.BusAddr, "err", err)
			os.Exit(1)
		}
	}()

	log.Debug("Loaded bus", "addr", cfg.Daemon.BusAddr)

	var ducker *audio.Ducker
	if !*noDuck {
		ducker = audio.NewDucker([]string{"setsuna"}, 20)
	}

	vv := voicevox.NewClient(cfg.Voicevox.URL, cfg.VoicevoxTimeout())
	assistant := daemon.New(cfg, rec, transcriber, chatClient, vv,
		audio.NewPlayer(), hist, hub, ducker)

	srv, err := ipc.Serve(cfg.Daemon.SocketPath, assistant.Handle)
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	log.Info("Boot up - successful", "socket", cfg.Daemon.SocketPath)

	select {}
}
