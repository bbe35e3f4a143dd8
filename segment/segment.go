// Package segment turns a decoded waveform into fixed-length chunks at the
// model sample rate.
package segment

import (
	"fmt"

	"github.com/viant/songvec/audio"
)

// Defaults used by the ingestion pipeline.
const (
	DefaultTargetRate       = 16000
	DefaultFullTrackSeconds = 27
	DefaultChunkSeconds     = 3
)

// Chunk is one contiguous, non-overlapping slice of a normalised track.
type Chunk struct {
	TrackID string
	Index   int
	Samples []float32
}

// ShortTrackError reports a track shorter than the required duration.
type ShortTrackError struct {
	TrackID  string
	Samples  int
	Required int
}

func (e *ShortTrackError) Error() string {
	return fmt.Sprintf("segment: track %s too short: %d samples, need %d", e.TrackID, e.Samples, e.Required)
}

// Segmenter resamples, length-normalises and chunks waveforms.
type Segmenter struct {
	TargetRate       int
	FullTrackSeconds int
	ChunkSeconds     int
}

// Default returns the segmenter used by ingestion: 16 kHz, 27 s, 3 s chunks.
func Default() Segmenter {
	return Segmenter{
		TargetRate:       DefaultTargetRate,
		FullTrackSeconds: DefaultFullTrackSeconds,
		ChunkSeconds:     DefaultChunkSeconds,
	}
}

// Validate checks the configuration.
func (s Segmenter) Validate() error {
	switch {
	case s.TargetRate <= 0:
		return fmt.Errorf("segment: invalid target rate %d", s.TargetRate)
	case s.ChunkSeconds <= 0:
		return fmt.Errorf("segment: invalid chunk duration %ds", s.ChunkSeconds)
	case s.FullTrackSeconds < s.ChunkSeconds:
		return fmt.Errorf("segment: full track duration %ds shorter than chunk duration %ds", s.FullTrackSeconds, s.ChunkSeconds)
	}
	return nil
}

// TrackSamples is the normalised track length in samples.
func (s Segmenter) TrackSamples() int { return s.TargetRate * s.FullTrackSeconds }

// ChunkSamples is the length of every chunk in samples.
func (s Segmenter) ChunkSamples() int { return s.TargetRate * s.ChunkSeconds }

// ChunkCount is the number of chunks Split yields for an admitted track.
func (s Segmenter) ChunkCount() int { return s.FullTrackSeconds / s.ChunkSeconds }

// Split resamples wf to TargetRate and partitions it into ChunkCount chunks.
// Tracks shorter than FullTrackSeconds yield a *ShortTrackError and no
// chunks. Samples in the error is the length at TargetRate. The input waveform is not modified.
func (s Segmenter) Split(trackID string, wf audio.Waveform) ([]Chunk, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if wf.SampleRate <= 0 {
		return nil, fmt.Errorf("segment: track %s: invalid sample rate %d", trackID, wf.SampleRate)
	}
	required := s.TrackSamples()
	// duration is compared at the native rate; resampling rounds lengths up
	native := int64(len(wf.Samples))
	if native*int64(s.TargetRate) < int64(required)*int64(wf.SampleRate) {
		return nil, &ShortTrackError{
			TrackID:  trackID,
			Samples:  int(native * int64(s.TargetRate) / int64(wf.SampleRate)),
			Required: required,
		}
	}
	samples, err := audio.Resample(wf.Samples, wf.SampleRate, s.TargetRate)
	if err != nil {
		return nil, fmt.Errorf("segment: track %s: %w", trackID, err)
	}
	samples = FixLength(samples, required)

	size := s.ChunkSamples()
	chunks := make([]Chunk, s.ChunkCount())
	for i := range chunks {
		chunks[i] = Chunk{
			TrackID: trackID,
			Index:   i,
			Samples: samples[i*size : (i+1)*size : (i+1)*size],
		}
	}
	return chunks, nil
}

// FixLength returns samples zero-padded or truncated to exactly n samples.
func FixLength(samples []float32, n int) []float32 {
	if len(samples) >= n {
		return samples[:n]
	}
	out := make([]float32, n)
	copy(out, samples)
	return out
}
