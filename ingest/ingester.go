// Package ingest drives the batch pipeline: for every audio file it resolves
// the genre, applies the per-genre quota, decodes and segments the track,
// extracts one embedding per chunk and stores it.
//
// Per-track failures never stop a run; they are reported as a TrackResult.
// Only store failures and context cancellation abort Run.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/songvec/audio"
	"github.com/viant/songvec/catalog"
	"github.com/viant/songvec/embed"
	"github.com/viant/songvec/internal/logging"
	"github.com/viant/songvec/quota"
	"github.com/viant/songvec/segment"
	"github.com/viant/songvec/vector"
)

// Catalog resolves a track id to its genre; catalog.Map implements it.
type Catalog interface {
	Lookup(trackID string) (string, error)
}

// Store persists chunk embeddings; vector.SQLiteStore implements it.
type Store interface {
	Insert(ctx context.Context, songName, genre string, embedding []float32) (int64, error)
}

// Ledger remembers completed tracks across runs; ledger.Ledger implements it.
type Ledger interface {
	Done(trackID string) (bool, error)
	MarkDone(trackID, genre string) error
}

// Config holds the collaborators of an Ingester.
type Config struct {
	Catalog   Catalog
	Decoder   audio.Decoder
	Segmenter segment.Segmenter
	Extractor embed.Extractor
	Store     Store
	Quota     *quota.State

	// Ledger is optional.
	Ledger Ledger
	// TagGenre, when set, is consulted for tracks missing from Catalog.
	TagGenre func(path string) (string, error)

	Logger  *logging.Logger
	Metrics *Metrics
	// OnTrack is called after every track, e.g. to advance a progress bar.
	OnTrack func(TrackResult)
}

// Ingester runs the pipeline sequentially. It is not safe for concurrent use.
type Ingester struct {
	cfg    Config
	logger *logging.Logger
}

// New validates cfg and returns an Ingester.
func New(cfg Config) (*Ingester, error) {
	switch {
	case cfg.Catalog == nil:
		return nil, fmt.Errorf("ingest: catalog is nil")
	case cfg.Decoder == nil:
		return nil, fmt.Errorf("ingest: decoder is nil")
	case cfg.Extractor == nil:
		return nil, fmt.Errorf("ingest: extractor is nil")
	case cfg.Store == nil:
		return nil, fmt.Errorf("ingest: store is nil")
	case cfg.Quota == nil:
		return nil, fmt.Errorf("ingest: quota is nil")
	}
	if err := cfg.Segmenter.Validate(); err != nil {
		return nil, err
	}
	return &Ingester{cfg: cfg, logger: logging.OrNoop(cfg.Logger)}, nil
}

// Run processes files in order and returns the per-track report. On a fatal
// error the report covers the tracks finished before it.
func (in *Ingester) Run(ctx context.Context, files []string) (*Report, error) {
	report := newReport()
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := in.ProcessTrack(ctx, file)
		if err != nil {
			return report, err
		}
		report.add(res)
		in.cfg.Metrics.onTrack(res.Status)
		if in.cfg.OnTrack != nil {
			in.cfg.OnTrack(res)
		}
	}
	in.logger.InfoContext(ctx, "ingestion finished", "summary", report.String())
	return report, nil
}

// ProcessTrack runs the pipeline for one file. The returned error is fatal;
// recoverable problems are described by the TrackResult.
func (in *Ingester) ProcessTrack(ctx context.Context, file string) (TrackResult, error) {
	res := TrackResult{File: file, TrackID: catalog.TrackID(file)}
	log := in.logger.With("file", file, "track", res.TrackID)

	if in.cfg.Ledger != nil {
		done, err := in.cfg.Ledger.Done(res.TrackID)
		if err != nil {
			return res, err
		}
		if done {
			res.Status = StatusAlreadyIngested
			log.DebugContext(ctx, "track already ingested")
			return res, nil
		}
	}

	genre, err := in.genre(file, res.TrackID)
	if err != nil {
		res.Status, res.Err = StatusMissingGenre, err
		log.WarnContext(ctx, "skipping track without genre", "error", err)
		return res, nil
	}
	res.Genre = genre
	tlog := in.logger.WithTrack(res.TrackID, genre)

	if in.cfg.Quota.Reached(genre) {
		res.Status = StatusQuotaReached
		res.Err = fmt.Errorf("ingest: genre %q reached %d tracks", genre, in.cfg.Quota.Max())
		tlog.DebugContext(ctx, "genre quota reached")
		return res, nil
	}

	wf, err := in.cfg.Decoder.Decode(ctx, file)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Status, res.Err = StatusCorrupt, &CorruptFileError{File: file, Stage: "decode", Err: err}
		tlog.ErrorContext(ctx, "corrupt file", "file", file, "error", res.Err)
		return res, nil
	}

	chunks, err := in.cfg.Segmenter.Split(res.TrackID, wf)
	if err != nil {
		var short *segment.ShortTrackError
		if errors.As(err, &short) {
			res.Status, res.Err = StatusShortTrack, err
			tlog.InfoContext(ctx, "skipping short track", "samples", short.Samples, "required", short.Required)
			return res, nil
		}
		res.Status, res.Err = StatusCorrupt, &CorruptFileError{File: file, Stage: "segment", Err: err}
		tlog.ErrorContext(ctx, "corrupt file", "file", file, "error", res.Err)
		return res, nil
	}

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		started := time.Now()
		emb, err := in.cfg.Extractor.Extract(ctx, chunk.Samples)
		in.cfg.Metrics.onExtract(time.Since(started), err)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Status = StatusCorrupt
			res.Err = &CorruptFileError{File: file, Stage: fmt.Sprintf("extract chunk %d", chunk.Index), Err: err}
			tlog.ErrorContext(ctx, "corrupt file", "file", file, "chunk", chunk.Index, "error", res.Err)
			return res, nil
		}

		song := vector.SongName(res.TrackID, chunk.Index)
		affected, err := in.cfg.Store.Insert(ctx, song, genre, emb)
		tlog.LogInsert(ctx, song, affected, err)
		if err != nil {
			var dim *vector.DimensionMismatchError
			var nonFinite *vector.NonFiniteError
			if errors.As(err, &dim) || errors.As(err, &nonFinite) {
				res.Status = StatusCorrupt
				res.Err = &CorruptFileError{File: file, Stage: fmt.Sprintf("store chunk %d", chunk.Index), Err: err}
				return res, nil
			}
			return res, fmt.Errorf("ingest: %s: %w", song, err)
		}
		res.Chunks++
		in.cfg.Metrics.onChunk(affected)
		if affected == 0 {
			res.Duplicates++
		} else {
			res.Inserted++
		}
	}

	in.cfg.Quota.Admit(genre)
	if in.cfg.Ledger != nil {
		if err := in.cfg.Ledger.MarkDone(res.TrackID, genre); err != nil {
			return res, err
		}
	}
	res.Status = StatusCompleted
	tlog.InfoContext(ctx, "track completed", "chunks", res.Chunks, "inserted", res.Inserted, "duplicates", res.Duplicates)
	return res, nil
}

func (in *Ingester) genre(file, trackID string) (string, error) {
	genre, err := in.cfg.Catalog.Lookup(trackID)
	if err == nil || in.cfg.TagGenre == nil {
		return genre, err
	}
	if tagged, tagErr := in.cfg.TagGenre(file); tagErr == nil {
		return tagged, nil
	}
	return "", err
}
