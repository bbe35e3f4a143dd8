package audio

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/mjibson/go-dsp/wav"
)

const formatPCM = 1

// WAVDecoder decodes PCM and IEEE float WAV files without external tools.
type WAVDecoder struct{}

// Decode reads the whole file and downmixes it to mono.
func (WAVDecoder) Decode(_ context.Context, path string) (Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return Waveform{}, err
	}
	defer f.Close()

	w, err := wav.New(bufio.NewReader(f))
	if err != nil {
		return Waveform{}, fmt.Errorf("wav decode %s: %w", path, err)
	}
	if w.SampleRate == 0 || w.NumChannels == 0 {
		return Waveform{}, fmt.Errorf("wav decode %s: invalid header", path)
	}
	if w.Samples == 0 {
		return Waveform{SampleRate: int(w.SampleRate)}, nil
	}
	samples, err := w.ReadFloats(w.Samples)
	if err != nil {
		return Waveform{}, fmt.Errorf("wav decode %s: %w", path, err)
	}
	if w.AudioFormat == formatPCM {
		// go-dsp scales integer PCM into [0, 1].
		for i, v := range samples {
			samples[i] = 2*v - 1
		}
	}
	return Waveform{Samples: Downmix(samples, int(w.NumChannels)), SampleRate: int(w.SampleRate)}, nil
}
