package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

// playbackRate is the speaker sample rate; streams at other rates are
// resampled into it.
const playbackRate = beep.SampleRate(44100)

// Player plays synthesized WAV buffers and notification sound files.
type Player struct {
	mu          sync.Mutex
	initialized bool
}

// NewPlayer returns a Player; the speaker is initialized on first use.
func NewPlayer() *Player { return &Player{} }

// PlayWAV plays an in-memory WAV buffer (the VOICEVOX synthesis output)
// and blocks until playback finishes.
func (p *Player) PlayWAV(data []byte) error {
	streamer, format, err := wav.Decode(nopReadSeekCloser{bytes.NewReader(data)})
	if err != nil {
		return fmt.Errorf("audio: decode wav: %w", err)
	}
	defer streamer.Close()

	return p.play(streamer, format)
}

// PlayFile plays a wav, mp3 or ogg sound file and blocks until done.
// An empty path is a no-op so the chime can be disabled by config.
func (p *Player) PlayFile(path string) error {
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
	default:
		return fmt.Errorf("audio: unsupported sound format: %s", path)
	}
	if err != nil {
		return fmt.Errorf("audio: decode %s: %w", path, err)
	}
	defer streamer.Close()

	return p.play(streamer, format)
}

func (p *Player) play(streamer beep.Streamer, format beep.Format) error {
	p.mu.Lock()
	if !p.initialized {
		if err := speaker.Init(playbackRate, playbackRate.N(time.Second/10)); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("audio: init speaker: %w", err)
		}
		p.initialized = true
	}
	p.mu.Unlock()

	if format.SampleRate != playbackRate {
		streamer = beep.Resample(4, format.SampleRate, playbackRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}

// wav.Decode wants a ReadSeekCloser; byte buffers only seek.
type nopReadSeekCloser struct {
	*bytes.Reader
}

func (nopReadSeekCloser) Close() error { return nil }

var _ io.ReadSeeker = nopReadSeekCloser{}
