// Package search finds stored tracks acoustically similar to an audio file.
package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/viant/songvec/audio"
	"github.com/viant/songvec/catalog"
	"github.com/viant/songvec/embed"
	"github.com/viant/songvec/internal/logging"
	"github.com/viant/songvec/segment"
	"github.com/viant/songvec/vector"
)

// Index is the read side of the vector store.
type Index interface {
	KNearest(ctx context.Context, embedding []float32, k int) ([]vector.Match, error)
}

// ChunkMatches holds the neighbours of one query chunk.
type ChunkMatches struct {
	Chunk   int
	Matches []vector.Match
}

// TrackHit is a stored track ranked by its closest chunk.
type TrackHit struct {
	TrackID  string
	Genre    string
	Distance float64
	Hits     int
}

// Searcher embeds a query file the same way ingestion does and queries the
// index once per chunk.
type Searcher struct {
	Decoder   audio.Decoder
	Segmenter segment.Segmenter
	Extractor embed.Extractor
	Index     Index
	Logger    *logging.Logger
}

// SimilarToFile returns the k nearest stored chunks for every chunk of path.
func (s *Searcher) SimilarToFile(ctx context.Context, path string, k int) ([]ChunkMatches, error) {
	if k <= 0 {
		return nil, vector.ErrInvalidK
	}
	wf, err := s.Decoder.Decode(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("search: decode %s: %w", path, err)
	}
	chunks, err := s.Segmenter.Split(catalog.TrackID(path), wf)
	if err != nil {
		return nil, err
	}
	out := make([]ChunkMatches, 0, len(chunks))
	for _, c := range chunks {
		emb, err := s.Extractor.Extract(ctx, c.Samples)
		if err != nil {
			return nil, fmt.Errorf("search: extract chunk %d: %w", c.Index, err)
		}
		matches, err := s.Index.KNearest(ctx, emb, k)
		if err != nil {
			return nil, err
		}
		out = append(out, ChunkMatches{Chunk: c.Index, Matches: matches})
	}
	logging.OrNoop(s.Logger).DebugContext(ctx, "file searched", "file", path, "chunks", len(out), "k", k)
	return out, nil
}

// RankTracks folds chunk matches into per-track hits ordered by best
// distance, then by hit count. Matches of exclude are dropped.
func RankTracks(results []ChunkMatches, exclude string) []TrackHit {
	byTrack := map[string]*TrackHit{}
	for _, r := range results {
		for _, m := range r.Matches {
			id := vector.TrackOf(m.SongName)
			if id == exclude {
				continue
			}
			hit, ok := byTrack[id]
			if !ok {
				hit = &TrackHit{TrackID: id, Genre: m.Genre, Distance: m.Distance}
				byTrack[id] = hit
			}
			hit.Hits++
			if m.Distance < hit.Distance {
				hit.Distance = m.Distance
			}
		}
	}
	out := make([]TrackHit, 0, len(byTrack))
	for _, h := range byTrack {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Hits != out[j].Hits {
			return out[i].Hits > out[j].Hits
		}
		return out[i].TrackID < out[j].TrackID
	})
	return out
}
