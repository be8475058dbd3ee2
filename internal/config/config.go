// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultVoicevoxURL     = "http://127.0.0.1:50021"
	DefaultVoicevoxStyle   = 46 // VOICEVOX "小夜/SAYO" normal style
	DefaultVoicevoxTimeout = "30s"
	DefaultChatModel       = "gpt-4o-mini"
	DefaultChatTimeout     = "60s"
	DefaultMaxTurns        = 10
	DefaultBusAddr         = "127.0.0.1:8092"
	DefaultSocketPath      = "/tmp/setsuna.sock"
	DefaultWhisperModel    = "models/ggml-small.bin"
	DefaultRecordMaxSec    = 15
)

// DefaultPersona is the system prompt used when the config does not set one.
const DefaultPersona = `You are Setsuna, a friendly desktop voice assistant.
Answer in short conversational sentences suitable for speech synthesis.`

// Config represents the setsuna configuration.
type Config struct {
	Voicevox VoicevoxConfig `toml:"voicevox"`
	Chat     ChatConfig     `toml:"chat"`
	Audio    AudioConfig    `toml:"audio"`
	Daemon   DaemonConfig   `toml:"daemon"`
	Tube     TubeConfig     `toml:"tube"`
}

// VoicevoxConfig holds VOICEVOX engine settings.
type VoicevoxConfig struct {
	URL         string  `toml:"url"`
	StyleID     int     `toml:"style_id"`
	Timeout     string  `toml:"timeout"`
	SpeedScale  float64 `toml:"speed_scale"`  // 0 = engine default
	PitchScale  float64 `toml:"pitch_scale"`  // offset, 0 = engine default
	VolumeScale float64 `toml:"volume_scale"` // 0 = engine default
}

// ChatConfig holds LLM chat settings.
type ChatConfig struct {
	APIKey    string `toml:"api_key"` // usually via OPENAI_API_KEY instead
	Model     string `toml:"model"`
	Persona   string `toml:"persona"`
	MaxTurns  int    `toml:"max_turns"`
	Timeout   string `toml:"timeout"`
	SocksAddr string `toml:"socks_addr"` // optional SOCKS5 proxy for the API
}

// AudioConfig holds capture and playback settings.
type AudioConfig struct {
	WhisperModel string `toml:"whisper_model"`
	Language     string `toml:"language"` // "auto", "ja", "en", ...
	RecordMaxSec int    `toml:"record_max_sec"`
	ChimePath    string `toml:"chime_path"` // wav/mp3/ogg played before listening
}

// DaemonConfig holds daemon endpoints and paths.
type DaemonConfig struct {
	SocketPath  string `toml:"socket_path"`
	BusAddr     string `toml:"bus_addr"`
	HistoryPath string `toml:"history_path"`
}

// TubeConfig holds the YouTube knowledge-base settings.
type TubeConfig struct {
	APIKey    string `toml:"api_key"` // usually via YOUTUBE_API_KEY instead
	StorePath string `toml:"store_path"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Voicevox: VoicevoxConfig{
			URL:     DefaultVoicevoxURL,
			StyleID: DefaultVoicevoxStyle,
			Timeout: DefaultVoicevoxTimeout,
		},
		Chat: ChatConfig{
			Model:    DefaultChatModel,
			Persona:  DefaultPersona,
			MaxTurns: DefaultMaxTurns,
			Timeout:  DefaultChatTimeout,
		},
		Audio: AudioConfig{
			WhisperModel: DefaultWhisperModel,
			Language:     "auto",
			RecordMaxSec: DefaultRecordMaxSec,
		},
		Daemon: DaemonConfig{
			SocketPath:  DefaultSocketPath,
			BusAddr:     DefaultBusAddr,
			HistoryPath: HistoryPath(),
		},
		Tube: TubeConfig{
			StorePath: KnowledgePath(),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "setsuna", "config.toml")
}

// DataDir returns the directory for persistent state.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "setsuna")
}

// HistoryPath returns the default chat-history file path.
func HistoryPath() string {
	return filepath.Join(DataDir(), "history.json")
}

// KnowledgePath returns the default knowledge-base file path.
func KnowledgePath() string {
	return filepath.Join(DataDir(), "knowledge.json")
}

// EnsureDataDir creates the data directory if needed.
func EnsureDataDir() error {
	dir := DataDir()
	if dir == "" {
		return errors.New("cannot determine data directory")
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads the config file at path (ConfigPath() when empty), applies
// defaults for unset fields, then environment overrides. A missing file is
// not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// defaults only
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.Tube.APIKey = v
	}
	if v := os.Getenv("VOICEVOX_URL"); v != "" {
		cfg.Voicevox.URL = v
	}
	if v := os.Getenv("SETSUNA_SOCKET"); v != "" {
		cfg.Daemon.SocketPath = v
	}
	if v := os.Getenv("SETSUNA_BUS_ADDR"); v != "" {
		cfg.Daemon.BusAddr = v
	}
}

// Validate checks fields other packages will choke on later.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Voicevox.Timeout); err != nil {
		return fmt.Errorf("voicevox.timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Chat.Timeout); err != nil {
		return fmt.Errorf("chat.timeout: %w", err)
	}
	if c.Chat.MaxTurns < 1 {
		return errors.New("chat.max_turns must be at least 1")
	}
	if c.Audio.RecordMaxSec < 1 {
		return errors.New("audio.record_max_sec must be at least 1")
	}
	return nil
}

// VoicevoxTimeout returns the parsed VOICEVOX request timeout.
func (c *Config) VoicevoxTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Voicevox.Timeout)
	return d
}

// ChatTimeout returns the parsed chat request timeout.
func (c *Config) ChatTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Chat.Timeout)
	return d
}
