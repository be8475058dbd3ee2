package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	gaudio "github.com/go-audio/audio"
	gwav "github.com/go-audio/wav"
)

// WriteWAV writes mono float32 PCM to a 16-bit WAV file. Used by the
// diagnostics recorder and for dumping captures.
func WriteWAV(path string, pcm []float32, sampleRate int) error {
	if len(pcm) == 0 {
		return errors.New("audio: empty pcm")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := gwav.NewEncoder(f, sampleRate, 16, 1, 1)

	ints := make([]int, len(pcm))
	for i, x := range pcm {
		v := int(math.Round(float64(x) * 32767))
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		ints[i] = v
	}

	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio: encode wav: %w", err)
	}
	return enc.Close()
}

// ReadWAV reads a WAV file into mono 16kHz float32 PCM, downmixing and
// resampling as needed. The result feeds straight into the transcriber.
func ReadWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := gwav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audio: %s is not a valid wav file", path)
	}

	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode wav: %w", err)
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, errors.New("audio: empty wav")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	x := intSliceToFloat32(pb.Data, bitDepth)

	channels, rate := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			channels = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			rate = pb.Format.SampleRate
		}
	}
	if channels > 1 {
		x = downmixInterleaved(x, channels)
	}
	if rate != SampleRate {
		x = resampleLinear(x, rate, SampleRate)
	}
	return x, nil
}

func intSliceToFloat32(data []int, bitDepth int) []float32 {
	scale := float32(math.Pow(2, float64(bitDepth-1)))
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / scale
	}
	return out
}

// downmixInterleaved averages interleaved channels into mono.
func downmixInterleaved(x []float32, channels int) []float32 {
	if channels <= 1 {
		return x
	}
	frames := len(x) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += x[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// resampleLinear converts between sample rates with linear interpolation.
// Good enough for speech input.
func resampleLinear(x []float32, from, to int) []float32 {
	if from == to || len(x) == 0 {
		return x
	}

	ratio := float64(from) / float64(to)
	n := int(float64(len(x)) / ratio)
	out := make([]float32, n)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(x)-1 {
			out[i] = x[len(x)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = x[j]*(1-frac) + x[j+1]*frac
	}
	return out
}
