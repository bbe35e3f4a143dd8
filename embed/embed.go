// Package embed converts fixed-length audio chunks into embedding vectors.
//
// The model itself lives behind Extractor: HTTPExtractor calls a remote
// model server, SpectralExtractor computes a log-mel band profile locally,
// and Func adapts any caller-supplied function.
package embed

import (
	"context"
	"fmt"
)

// Extractor maps one audio chunk to a fixed-dimension embedding. Extract
// must be deterministic for a given model state.
type Extractor interface {
	Extract(ctx context.Context, samples []float32) ([]float32, error)
	Dimension() int
}

// ExtractFunc computes an embedding for a chunk.
type ExtractFunc func(ctx context.Context, samples []float32) ([]float32, error)

type funcExtractor struct {
	dim int
	fn  ExtractFunc
}

// Func returns an Extractor backed by fn. Results whose length differs from
// dim are rejected.
func Func(dim int, fn ExtractFunc) (Extractor, error) {
	if fn == nil {
		return nil, fmt.Errorf("embed: ExtractFunc is nil")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embed: invalid dimension %d", dim)
	}
	return &funcExtractor{dim: dim, fn: fn}, nil
}

func (f *funcExtractor) Dimension() int { return f.dim }

func (f *funcExtractor) Extract(ctx context.Context, samples []float32) ([]float32, error) {
	out, err := f.fn(ctx, samples)
	if err != nil {
		return nil, err
	}
	if err := checkDimension(out, f.dim); err != nil {
		return nil, err
	}
	return out, nil
}

func checkDimension(embedding []float32, dim int) error {
	if len(embedding) != dim {
		return fmt.Errorf("embed: model returned %d values, expected %d", len(embedding), dim)
	}
	return nil
}
