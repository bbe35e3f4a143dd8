// Package quota limits how many tracks of each genre are admitted.
package quota

import (
	"context"
	"fmt"
	"sort"
)

// DefaultMaxTracksPerGenre is the per-genre track limit used by ingestion.
const DefaultMaxTracksPerGenre = 990

// Mode selects how counters are initialised.
type Mode string

const (
	// ModeFresh starts every genre at zero, regardless of stored rows.
	ModeFresh Mode = "fresh"
	// ModeResume seeds counters from the tracks already in the store.
	ModeResume Mode = "resume"
)

// ParseMode validates a configured mode name; empty means ModeFresh.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeFresh:
		return ModeFresh, nil
	case ModeResume:
		return ModeResume, nil
	}
	return "", fmt.Errorf("quota: unknown mode %q", s)
}

// Counter reports distinct stored tracks per genre.
type Counter interface {
	GenreTrackCounts(ctx context.Context) (map[string]int, error)
}

// State counts admitted tracks per genre. It is not safe for concurrent use.
type State struct {
	max    int
	counts map[string]int
}

// New returns a State with all counters at zero.
func New(limit int) *State {
	return &State{max: limit, counts: map[string]int{}}
}

// Resume returns a State seeded from counter.
func Resume(ctx context.Context, limit int, counter Counter) (*State, error) {
	counts, err := counter.GenreTrackCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("quota: load stored counts: %w", err)
	}
	s := New(limit)
	for genre, n := range counts {
		s.counts[genre] = n
	}
	return s, nil
}

// Load builds a State for mode.
func Load(ctx context.Context, mode Mode, limit int, counter Counter) (*State, error) {
	if mode == ModeResume {
		return Resume(ctx, limit, counter)
	}
	return New(limit), nil
}

// Max returns the per-genre limit.
func (s *State) Max() int { return s.max }

// Reached reports whether genre has no remaining capacity.
func (s *State) Reached(genre string) bool { return s.counts[genre] >= s.max }

// Admit records one more completed track for genre.
func (s *State) Admit(genre string) { s.counts[genre]++ }

// Count returns the admitted track count for genre.
func (s *State) Count(genre string) int { return s.counts[genre] }

// Genres returns the genres with at least one admitted track, sorted.
func (s *State) Genres() []string {
	out := make([]string, 0, len(s.counts))
	for g, n := range s.counts {
		if n > 0 {
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}
