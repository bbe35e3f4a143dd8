// Package audio decodes audio files into mono float32 waveforms.
package audio

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// DefaultDecodeRate is the rate compressed formats are decoded at before the
// segmenter resamples them to the model rate.
const DefaultDecodeRate = 22050

// Waveform is a mono signal at its native sample rate.
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Seconds returns the waveform duration.
func (w Waveform) Seconds() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Decoder turns an audio file into a waveform. Implementations fail on
// corrupt or unsupported input.
type Decoder interface {
	Decode(ctx context.Context, path string) (Waveform, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, path string) (Waveform, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, path string) (Waveform, error) { return f(ctx, path) }

// AutoDecoder decodes .wav files natively and everything else via ffmpeg.
type AutoDecoder struct {
	WAV    Decoder
	FFmpeg Decoder
}

// Decode dispatches on the file extension.
func (d *AutoDecoder) Decode(ctx context.Context, path string) (Waveform, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return d.WAV.Decode(ctx, path)
	}
	return d.FFmpeg.Decode(ctx, path)
}

// Resample converts samples from rate src to rate dst by linear
// interpolation. The output holds ceil(len*dst/src) samples.
func Resample(samples []float32, src, dst int) ([]float32, error) {
	if src <= 0 || dst <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rates %d -> %d", src, dst)
	}
	if src == dst || len(samples) == 0 {
		return append([]float32(nil), samples...), nil
	}
	n := int(math.Ceil(float64(len(samples)) * float64(dst) / float64(src)))
	out := make([]float32, n)
	step := float64(src) / float64(dst)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j] + (samples[j+1]-samples[j])*frac
	}
	return out, nil
}

// Downmix averages interleaved channels into a mono signal.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
