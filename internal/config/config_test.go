package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "YOUTUBE_API_KEY", "VOICEVOX_URL",
		"SETSUNA_SOCKET", "SETSUNA_BUS_ADDR",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultVoicevoxURL, cfg.Voicevox.URL)
	assert.Equal(t, DefaultVoicevoxStyle, cfg.Voicevox.StyleID)
	assert.Equal(t, DefaultChatModel, cfg.Chat.Model)
	assert.Equal(t, DefaultMaxTurns, cfg.Chat.MaxTurns)
	assert.Equal(t, DefaultPersona, cfg.Chat.Persona)
	assert.Equal(t, DefaultSocketPath, cfg.Daemon.SocketPath)
	assert.Equal(t, DefaultBusAddr, cfg.Daemon.BusAddr)
	assert.Equal(t, 30*time.Second, cfg.VoicevoxTimeout())
	assert.Equal(t, time.Minute, cfg.ChatTimeout())
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
[voicevox]
url = "http://172.20.0.1:50021"
style_id = 3
speed_scale = 1.1

[chat]
model = "gpt-4o"
max_turns = 4

[audio]
language = "ja"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://172.20.0.1:50021", cfg.Voicevox.URL)
	assert.Equal(t, 3, cfg.Voicevox.StyleID)
	assert.Equal(t, 1.1, cfg.Voicevox.SpeedScale)
	assert.Equal(t, "gpt-4o", cfg.Chat.Model)
	assert.Equal(t, 4, cfg.Chat.MaxTurns)
	assert.Equal(t, "ja", cfg.Audio.Language)

	// untouched sections keep defaults
	assert.Equal(t, DefaultSocketPath, cfg.Daemon.SocketPath)
	assert.Equal(t, DefaultWhisperModel, cfg.Audio.WhisperModel)
}

func TestLoad_Malformed(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "[voicevox\nbroken")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("YOUTUBE_API_KEY", "yt-test")
	t.Setenv("VOICEVOX_URL", "http://10.0.0.5:50021")
	t.Setenv("SETSUNA_SOCKET", "/run/setsuna.sock")
	t.Setenv("SETSUNA_BUS_ADDR", "127.0.0.1:9999")

	path := writeConfig(t, `
[voicevox]
url = "http://from-file:50021"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// env wins over the file
	assert.Equal(t, "http://10.0.0.5:50021", cfg.Voicevox.URL)
	assert.Equal(t, "sk-test", cfg.Chat.APIKey)
	assert.Equal(t, "yt-test", cfg.Tube.APIKey)
	assert.Equal(t, "/run/setsuna.sock", cfg.Daemon.SocketPath)
	assert.Equal(t, "127.0.0.1:9999", cfg.Daemon.BusAddr)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad voicevox timeout", "[voicevox]\ntimeout = \"soon\"\n", "voicevox.timeout"},
		{"bad chat timeout", "[chat]\ntimeout = \"later\"\n", "chat.timeout"},
		{"zero max turns", "[chat]\nmax_turns = 0\n", "max_turns"},
		{"zero record max", "[audio]\nrecord_max_sec = 0\n", "record_max_sec"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	assert.Equal(t, "/tmp/xdg-config/setsuna/config.toml", ConfigPath())
	assert.Equal(t, "/tmp/xdg-data/setsuna", DataDir())
	assert.Equal(t, "/tmp/xdg-data/setsuna/history.json", HistoryPath())
	assert.Equal(t, "/tmp/xdg-data/setsuna/knowledge.json", KnowledgePath())
}
