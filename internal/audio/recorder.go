// Package audio owns microphone capture and sound playback.
package audio

import (
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Capture format expected by the transcriber.
const (
	SampleRate = 16000
	frameSize  = 320 // 20ms at 16kHz
)

// ErrNothingRecorded is returned when no speech was captured.
var ErrNothingRecorded = errors.New("audio: nothing recorded")

// RecordOptions tune the silence-terminated capture. Zero values fall
// back to the defaults below.
type RecordOptions struct {
	SilenceRMS    float64       // frame RMS below this counts as silence
	TrailingQuiet time.Duration // stop after this much silence once speech started
	MaxDuration   time.Duration // hard cap
}

func (o *RecordOptions) defaults() {
	if o.SilenceRMS <= 0 {
		o.SilenceRMS = 0.015
	}
	if o.TrailingQuiet <= 0 {
		o.TrailingQuiet = 600 * time.Millisecond
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 15 * time.Second
	}
}

// Recorder captures mono 16kHz float32 PCM from the default input device.
type Recorder struct{}

// NewRecorder returns an uninitialized Recorder; call Init before use.
func NewRecorder() *Recorder { return &Recorder{} }

// Init initializes portaudio. Pair with Close.
func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

// Close terminates portaudio.
func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordAuto records until the speaker goes quiet: capture starts on the
// first frame above the RMS threshold and stops after TrailingQuiet of
// silence or at MaxDuration. stop aborts early and returns what was
// captured so far.
func (r *Recorder) RecordAuto(stop <-chan struct{}, opt RecordOptions) ([]float32, error) {
	opt.defaults()

	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)

	frameDur := time.Duration(frameSize) * time.Second / SampleRate
	maxFrames := int(opt.MaxDuration / frameDur)
	quietFrames := int(opt.TrailingQuiet / frameDur)

	for i := 0; i < maxFrames; i++ {
		select {
		case <-stop:
			if len(out) == 0 {
				return nil, ErrNothingRecorded
			}
			return out, nil
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > opt.SilenceRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}

		if speaking {
			silenceFrames++
			if silenceFrames >= quietFrames {
				break
			}
			out = append(out, buf...)
		}
	}

	if len(out) == 0 {
		return nil, ErrNothingRecorded
	}
	return out, nil
}

// RecordUntil captures the full window regardless of silence: recording
// runs until stop fires or maxDur elapses. This is the push-to-talk
// variant; hold-to-record callers close stop on key release.
func (r *Recorder) RecordUntil(stop <-chan struct{}, maxDur time.Duration) ([]float32, error) {
	if maxDur <= 0 {
		maxDur = 15 * time.Second
	}

	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	frameDur := time.Duration(frameSize) * time.Second / SampleRate
	maxFrames := int(maxDur / frameDur)

	for i := 0; i < maxFrames; i++ {
		select {
		case <-stop:
			if len(out) == 0 {
				return nil, ErrNothingRecorded
			}
			return out, nil
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}

	if len(out) == 0 {
		return nil, ErrNothingRecorded
	}
	return out, nil
}

// Device describes one portaudio device for diagnostics.
type Device struct {
	Name       string
	MaxInputs  int
	MaxOutputs int
	Default    bool
}

// Devices lists the available audio devices. Requires Init.
func (r *Recorder) Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	def, _ := portaudio.DefaultInputDevice()

	out := make([]Device, 0, len(infos))
	for _, d := range infos {
		out = append(out, Device{
			Name:       d.Name,
			MaxInputs:  d.MaxInputChannels,
			MaxOutputs: d.MaxOutputChannels,
			Default:    def != nil && d.Name == def.Name,
		})
	}
	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
