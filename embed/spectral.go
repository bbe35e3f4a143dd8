package embed

import (
	"context"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectral defaults match the model's training front end.
const (
	DefaultMels    = 128
	DefaultFFTSize = 2048
	DefaultHop     = 512
	DefaultMean    = 6.5304
	DefaultStd     = 11.8924
)

// amplitude floor of the dB conversion (-100 dB)
const powerFloor = 1e-10

// SpectralConfig configures SpectralExtractor.
type SpectralConfig struct {
	SampleRate int
	Mels       int
	FFTSize    int
	Hop        int
	Mean       float64
	Std        float64
}

// DefaultSpectralConfig returns the front end used for 16 kHz chunks.
func DefaultSpectralConfig() SpectralConfig {
	return SpectralConfig{
		SampleRate: 16000,
		Mels:       DefaultMels,
		FFTSize:    DefaultFFTSize,
		Hop:        DefaultHop,
		Mean:       DefaultMean,
		Std:        DefaultStd,
	}
}

// SpectralExtractor computes a normalised log-mel spectrogram of a chunk and
// averages it over time, giving one value per mel band. It needs no model
// server and is deterministic.
type SpectralExtractor struct {
	cfg    SpectralConfig
	window []float64
	banks  [][]float64 // [mel][fft bin]
}

// NewSpectralExtractor validates cfg and precomputes the window and mel
// filter bank.
func NewSpectralExtractor(cfg SpectralConfig) (*SpectralExtractor, error) {
	switch {
	case cfg.SampleRate <= 0:
		return nil, fmt.Errorf("embed: invalid sample rate %d", cfg.SampleRate)
	case cfg.Mels <= 0:
		return nil, fmt.Errorf("embed: invalid mel count %d", cfg.Mels)
	case cfg.FFTSize < 2 || cfg.FFTSize%2 != 0:
		return nil, fmt.Errorf("embed: FFT size %d must be even", cfg.FFTSize)
	case cfg.Hop <= 0:
		return nil, fmt.Errorf("embed: invalid hop %d", cfg.Hop)
	case cfg.Std <= 0:
		return nil, fmt.Errorf("embed: invalid std %v", cfg.Std)
	}
	return &SpectralExtractor{
		cfg:    cfg,
		window: window.Hann(cfg.FFTSize),
		banks:  melFilterBank(cfg.Mels, cfg.FFTSize, cfg.SampleRate),
	}, nil
}

// Dimension returns the number of mel bands.
func (s *SpectralExtractor) Dimension() int { return s.cfg.Mels }

// Extract returns the time-averaged normalised log-mel profile of samples.
func (s *SpectralExtractor) Extract(ctx context.Context, samples []float32) ([]float32, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("embed: empty chunk")
	}
	n := s.cfg.FFTSize
	pad := n / 2
	// centred frames over a zero-padded signal
	padded := make([]float64, len(samples)+2*pad)
	for i, v := range samples {
		padded[pad+i] = float64(v)
	}
	frames := 1 + (len(padded)-n)/s.cfg.Hop

	fft := fourier.NewFFT(n)
	frame := make([]float64, n)
	coeffs := make([]complex128, n/2+1)
	power := make([]float64, n/2+1)
	sums := make([]float64, s.cfg.Mels)

	for f := 0; f < frames; f++ {
		if f%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		start := f * s.cfg.Hop
		for i := range frame {
			frame[i] = padded[start+i] * s.window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for i, c := range coeffs {
			power[i] = real(c)*real(c) + imag(c)*imag(c)
		}
		for m, bank := range s.banks {
			var e float64
			for i, w := range bank {
				if w != 0 {
					e += w * power[i]
				}
			}
			db := 10 * math.Log10(math.Max(e, powerFloor))
			sums[m] += (db - s.cfg.Mean) / s.cfg.Std
		}
	}

	out := make([]float32, s.cfg.Mels)
	for m, v := range sums {
		out[m] = float32(v / float64(frames))
	}
	return out, nil
}

func hzToMel(f float64) float64 { return 2595 * math.Log10(1+f/700) }

func melToHz(m float64) float64 { return 700 * (math.Pow(10, m/2595) - 1) }

// melFilterBank builds triangular HTK mel filters spanning 0 Hz to Nyquist.
func melFilterBank(mels, fftSize, sampleRate int) [][]float64 {
	bins := fftSize/2 + 1
	nyquist := float64(sampleRate) / 2

	points := make([]float64, mels+2)
	maxMel := hzToMel(nyquist)
	for i := range points {
		points[i] = melToHz(maxMel * float64(i) / float64(mels+1))
	}

	banks := make([][]float64, mels)
	for m := range banks {
		lo, mid, hi := points[m], points[m+1], points[m+2]
		bank := make([]float64, bins)
		for i := range bank {
			f := nyquist * float64(i) / float64(bins-1)
			down := (f - lo) / (mid - lo)
			up := (hi - f) / (hi - mid)
			bank[i] = math.Max(0, math.Min(down, up))
		}
		banks[m] = bank
	}
	return banks
}

// MelCenter returns the centre frequency in Hz of mel band m.
func (s *SpectralExtractor) MelCenter(m int) float64 {
	maxMel := hzToMel(float64(s.cfg.SampleRate) / 2)
	return melToHz(maxMel * float64(m+1) / float64(s.cfg.Mels+1))
}
