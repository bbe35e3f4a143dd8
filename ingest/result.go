package ingest

import (
	"fmt"
)

// Status is the final state of one track.
type Status int

const (
	StatusCompleted Status = iota
	StatusMissingGenre
	StatusQuotaReached
	StatusShortTrack
	StatusCorrupt
	StatusAlreadyIngested
)

var statusNames = [...]string{
	StatusCompleted:       "completed",
	StatusMissingGenre:    "missing_genre",
	StatusQuotaReached:    "quota_reached",
	StatusShortTrack:      "short_track",
	StatusCorrupt:         "corrupt",
	StatusAlreadyIngested: "already_ingested",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// CorruptFileError wraps a decode or extraction failure for one file.
type CorruptFileError struct {
	File  string
	Stage string
	Err   error
}

func (e *CorruptFileError) Error() string {
	return fmt.Sprintf("ingest: %s: %s failed: %v", e.File, e.Stage, e.Err)
}

func (e *CorruptFileError) Unwrap() error { return e.Err }

// TrackResult describes what happened to one file.
type TrackResult struct {
	File    string
	TrackID string
	Genre   string
	Status  Status
	// Chunks counts embeddings handed to the store.
	Chunks     int
	Inserted   int
	Duplicates int
	// Err is the skip cause for every status except completed and
	// already ingested.
	Err error
}

// Report aggregates a batch run.
type Report struct {
	Tracks     []TrackResult
	Inserted   int
	Duplicates int
	byStatus   map[Status]int
}

func newReport() *Report {
	return &Report{byStatus: map[Status]int{}}
}

func (r *Report) add(res TrackResult) {
	r.Tracks = append(r.Tracks, res)
	r.Inserted += res.Inserted
	r.Duplicates += res.Duplicates
	r.byStatus[res.Status]++
}

// Count returns the number of tracks that ended in status.
func (r *Report) Count(status Status) int { return r.byStatus[status] }

// String summarises the run on one line.
func (r *Report) String() string {
	return fmt.Sprintf("tracks=%d completed=%d already_ingested=%d missing_genre=%d quota_reached=%d short=%d corrupt=%d inserted=%d duplicates=%d",
		len(r.Tracks),
		r.Count(StatusCompleted),
		r.Count(StatusAlreadyIngested),
		r.Count(StatusMissingGenre),
		r.Count(StatusQuotaReached),
		r.Count(StatusShortTrack),
		r.Count(StatusCorrupt),
		r.Inserted,
		r.Duplicates,
	)
}
