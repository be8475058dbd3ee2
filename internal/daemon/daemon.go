// Package daemon runs the voice-conversation pipeline behind the
// control socket.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"setsuna/internal/audio"
	"setsuna/internal/bus"
	"setsuna/internal/config"
	"setsuna/internal/history"
	"setsuna/internal/ipc"
	"setsuna/internal/stt"
	"setsuna/internal/voicevox"
)

// Daemon states reported over IPC and the bus.
const (
	StateIdle      = "idle"
	StateListening = "listening"
	StateThinking  = "thinking"
	StateSpeaking  = "speaking"
)

// Recorder captures one utterance.
type Recorder interface {
	RecordAuto(stop <-chan struct{}, opt audio.RecordOptions) ([]float32, error)
}

// Transcriber turns PCM into text.
type Transcriber interface {
	TranscribePCM(ctx context.Context, pcm []float32, opt stt.Options) (stt.Result, error)
}

// Chatter produces assistant replies.
type Chatter interface {
	Reply(ctx context.Context, text string) (string, error)
}

// Synthesizer renders text to WAV.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, styleID int, opt voicevox.TweakOptions) ([]byte, error)
}

// Player plays WAV buffers and sound files.
type Player interface {
	PlayWAV(data []byte) error
	PlayFile(path string) error
}

// Assistant wires the pipeline: record -> transcribe -> chat -> speak.
// One turn runs at a time; triggers while busy are refused.
type Assistant struct {
	cfg    *config.Config
	rec    Recorder
	stt    Transcriber
	chat   Chatter
	tts    Synthesizer
	player Player
	hist   *history.Store
	hub    *bus.Hub
	ducker *audio.Ducker // nil disables ducking

	busy  atomic.Bool
	state atomic.Value // string

	stopMu sync.Mutex
	stopCh chan struct{}
}

// New assembles an Assistant.
func New(cfg *config.Config, rec Recorder, tr Transcriber, chat Chatter, tts Synthesizer, player Player, hist *history.Store, hub *bus.Hub, ducker *audio.Ducker) *Assistant {
	a := &Assistant{
		cfg:    cfg,
		rec:    rec,
		stt:    tr,
		chat:   chat,
		tts:    tts,
		player: player,
		hist:   hist,
		hub:    hub,
		ducker: ducker,
	}
	a.state.Store(StateIdle)
	return a
}

// State returns the current pipeline state.
func (a *Assistant) State() string {
	return a.state.Load().(string)
}

// Handle is the ipc.Handler for the control socket.
func (a *Assistant) Handle(req ipc.Request) ipc.Response {
	switch req.Cmd {
	case ipc.CmdTrigger:
		if !a.busy.CompareAndSwap(false, true) {
			return ipc.Response{OK: false, State: a.State(), Detail: "busy"}
		}
		// visible to a concurrent status before the response returns;
		// runTurn broadcasts the transition
		a.state.Store(StateListening)
		go a.runTurn("")
		return ipc.Response{OK: true, State: StateListening}

	case ipc.CmdSay:
		if strings.TrimSpace(req.Text) == "" {
			return ipc.Response{OK: false, State: a.State(), Detail: "say needs text"}
		}
		if !a.busy.CompareAndSwap(false, true) {
			return ipc.Response{OK: false, State: a.State(), Detail: "busy"}
		}
		a.state.Store(StateThinking)
		go a.runTurn(req.Text)
		return ipc.Response{OK: true, State: StateThinking}

	case ipc.CmdCancel:
		a.cancelRecording()
		return ipc.Response{OK: true, State: a.State()}

	case ipc.CmdStatus:
		return ipc.Response{
			OK:     true,
			State:  a.State(),
			Detail: fmt.Sprintf("%d history entries", a.hist.Len()),
		}

	default:
		slog.Warn("unknown command", "cmd", req.Cmd)
		return ipc.Response{OK: false, State: a.State(), Detail: "unknown command: " + req.Cmd}
	}
}

// runTurn executes one conversation turn. userText empty means "listen
// on the microphone first". Callers must have won the busy flag.
func (a *Assistant) runTurn(userText string) {
	defer func() {
		a.setState(StateIdle)
		a.busy.Store(false)
	}()

	if userText == "" {
		var ok bool
		userText, ok = a.listen()
		if !ok {
			return
		}
	}

	a.hub.Broadcast(bus.NewEvent(bus.KindYou, userText))
	if _, err := a.hist.Append(history.RoleUser, userText); err != nil {
		slog.Warn("history append failed", "err", err)
	}

	a.setState(StateThinking)

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ChatTimeout())
	reply, err := a.chat.Reply(ctx, userText)
	cancel()
	if err != nil {
		a.fail("chat", err)
		return
	}

	slog.Info("reply ready", "chars", len(reply))
	a.hub.Broadcast(bus.NewEvent(bus.KindSetsuna, reply))
	if _, err := a.hist.Append(history.RoleAssistant, reply); err != nil {
		slog.Warn("history append failed", "err", err)
	}

	a.speak(reply)
}

// listen records and transcribes one utterance. Returns false when the
// turn should end without a reply.
func (a *Assistant) listen() (string, bool) {
	a.setState(StateListening)

	if err := a.player.PlayFile(a.cfg.Audio.ChimePath); err != nil {
		slog.Warn("chime failed", "err", err)
	}

	if a.ducker != nil {
		duckCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := a.ducker.Duck(duckCtx, 0.3); err != nil {
			slog.Debug("ducking unavailable", "err", err)
		}
		cancel()
		defer func() {
			restoreCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = a.ducker.Restore(restoreCtx)
		}()
	}

	slog.Info("listening")
	pcm, err := a.rec.RecordAuto(a.armStop(), audio.RecordOptions{
		MaxDuration: time.Duration(a.cfg.Audio.RecordMaxSec) * time.Second,
	})
	a.disarmStop()
	if err != nil {
		a.fail("record", err)
		return "", false
	}
	slog.Info("recorded", "samples", len(pcm))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	res, err := a.stt.TranscribePCM(ctx, pcm, stt.Options{
		Language: a.cfg.Audio.Language,
	})
	if err != nil {
		a.fail("transcribe", err)
		return "", false
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		a.fail("transcribe", fmt.Errorf("no speech recognized"))
		return "", false
	}

	slog.Info("transcribed", "text", text, "lang", res.Language)
	return text, true
}

// speak synthesizes and plays the reply.
func (a *Assistant) speak(text string) {
	a.setState(StateSpeaking)

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.VoicevoxTimeout())
	defer cancel()

	wav, err := a.tts.Synthesize(ctx, text, a.cfg.Voicevox.StyleID, voicevox.TweakOptions{
		SpeedScale:  a.cfg.Voicevox.SpeedScale,
		PitchScale:  a.cfg.Voicevox.PitchScale,
		VolumeScale: a.cfg.Voicevox.VolumeScale,
	})
	if err != nil {
		a.fail("synthesis", err)
		return
	}

	if err := a.player.PlayWAV(wav); err != nil {
		a.fail("playback", err)
	}
}

func (a *Assistant) setState(state string) {
	a.state.Store(state)
	a.hub.Broadcast(bus.NewEvent(bus.KindState, state))
}

// fail logs a stage error and surfaces it on the bus. The daemon keeps
// running.
func (a *Assistant) fail(stage string, err error) {
	slog.Error("turn failed", "stage", stage, "err", err)
	a.hub.Broadcast(bus.NewEvent(bus.KindError, stage+": "+err.Error()))
}

func (a *Assistant) armStop() <-chan struct{} {
	a.stopMu.Lock()
	defer a.stopMu.Unlock()
	a.stopCh = make(chan struct{})
	return a.stopCh
}

func (a *Assistant) disarmStop() {
	a.stopMu.Lock()
	defer a.stopMu.Unlock()
	a.stopCh = nil
}

func (a *Assistant) cancelRecording() {
	a.stopMu.Lock()
	defer a.stopMu.Unlock()
	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}
}
