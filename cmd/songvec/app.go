package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/viant/songvec/audio"
	"github.com/viant/songvec/catalog"
	"github.com/viant/songvec/config"
	"github.com/viant/songvec/engine"
	"github.com/viant/songvec/ingest"
	"github.com/viant/songvec/internal/logging"
	"github.com/viant/songvec/ledger"
	"github.com/viant/songvec/quota"
	"github.com/viant/songvec/search"
	"github.com/viant/songvec/vector"
)

type app struct {
	cfg    *config.Config
	logger *logging.Logger
	stdout io.Writer
	stderr io.Writer
}

func newApp(configPath string, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, stdout: stdout, stderr: stderr}, nil
}

// openStore opens the database; the caller closes the returned *sql.DB.
func (a *app) openStore(ctx context.Context) (*sql.DB, *vector.SQLiteStore, error) {
	db, err := engine.Open(a.cfg.Store.DSN)
	if err != nil {
		return nil, nil, err
	}
	store, err := vector.NewSQLiteStore(ctx, db, vector.Options{
		Table:          a.cfg.Store.Table,
		Dimension:      a.cfg.Store.Dimension,
		DedupThreshold: a.cfg.Store.DedupThreshold,
		Logger:         a.logger,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, store, nil
}

func (a *app) decoder() audio.Decoder {
	return &audio.AutoDecoder{
		WAV:    audio.WAVDecoder{},
		FFmpeg: &audio.FFmpegDecoder{Binary: a.cfg.Audio.FFmpeg, SampleRate: a.cfg.Audio.DecodeRate},
	}
}

func (a *app) schema(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: schema create|drop|status", errUsage)
	}
	db, store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	switch args[0] {
	case "create":
		return store.CreateSchema(ctx)
	case "drop":
		return store.DropSchema(ctx)
	case "status":
		ok, err := store.SchemaExists(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "table %s exists: %v\n", store.Table(), ok)
		return nil
	}
	return fmt.Errorf("%w: unknown schema action %q", errUsage, args[0])
}

func (a *app) ingest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	progress := fs.Bool("progress", true, "show a progress bar")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	db, store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := catalog.ListTracks(a.cfg.Catalog.AudioDir, a.cfg.Catalog.Extensions)
	if err != nil {
		return err
	}
	genres, err := catalog.BuildMap(ctx, a.cfg.Catalog.AudioDir, a.cfg.Catalog.MetadataCSV, a.cfg.CatalogOptions())
	if err != nil {
		return err
	}
	q, err := quota.Load(ctx, a.cfg.QuotaMode(), a.cfg.Quota.MaxTracksPerGenre, store)
	if err != nil {
		return err
	}
	extractor, err := a.cfg.NewExtractor()
	if err != nil {
		return err
	}

	cfg := ingest.Config{
		Catalog:   genres,
		Decoder:   a.decoder(),
		Segmenter: a.cfg.Segmenter(),
		Extractor: extractor,
		Store:     store,
		Quota:     q,
		Logger:    a.logger,
	}
	if a.cfg.Catalog.GenreFromTags {
		cfg.TagGenre = catalog.TagGenre
	}
	if a.cfg.Ledger.Dir != "" {
		led, err := ledger.Open(a.cfg.Ledger.Dir)
		if err != nil {
			return err
		}
		defer led.Close()
		cfg.Ledger = led
	}
	if a.cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		if cfg.Metrics, err = ingest.NewMetrics(reg); err != nil {
			return err
		}
		srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	if *progress {
		p := mpb.NewWithContext(ctx, mpb.WithOutput(a.stderr), mpb.WithWidth(64))
		bar := p.AddBar(int64(len(files)),
			mpb.PrependDecorators(
				decor.Name("Ingesting: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.AverageETA(decor.ET_STYLE_GO),
			),
		)
		cfg.OnTrack = func(ingest.TrackResult) { bar.Increment() }
		defer func() {
			bar.Abort(false)
			p.Wait()
		}()
	}

	in, err := ingest.New(cfg)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "starting ingestion", "files", len(files), "catalog", len(genres), "quota_mode", a.cfg.QuotaMode(), "max_tracks_per_genre", q.Max())
	report, runErr := in.Run(ctx, files)
	fmt.Fprintln(a.stdout, report.String())
	return runErr
}

func (a *app) searcher(store *vector.SQLiteStore) (*search.Searcher, error) {
	extractor, err := a.cfg.NewExtractor()
	if err != nil {
		return nil, err
	}
	return &search.Searcher{
		Decoder:   a.decoder(),
		Segmenter: a.cfg.Segmenter(),
		Extractor: extractor,
		Index:     store,
		Logger:    a.logger,
	}, nil
}

func (a *app) query(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	k := fs.Int("k", 10, "neighbours per chunk")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: query [-k N] FILE", errUsage)
	}
	file := fs.Arg(0)

	db, store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	s, err := a.searcher(store)
	if err != nil {
		return err
	}
	results, err := s.SimilarToFile(ctx, file, *k)
	if err != nil {
		return err
	}
	for _, hit := range search.RankTracks(results, catalog.TrackID(file)) {
		fmt.Fprintf(a.stdout, "%s\t%s\t%.6f\t%d\n", hit.TrackID, hit.Genre, hit.Distance, hit.Hits)
	}
	return nil
}

func (a *app) exists(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: exists FILE", errUsage)
	}
	db, store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	s, err := a.searcher(store)
	if err != nil {
		return err
	}

	wf, err := s.Decoder.Decode(ctx, args[0])
	if err != nil {
		return err
	}
	chunks, err := s.Segmenter.Split(catalog.TrackID(args[0]), wf)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		emb, err := s.Extractor.Extract(ctx, c.Samples)
		if err != nil {
			return err
		}
		m, ok, err := store.EmbeddingExists(ctx, emb)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(a.stdout, "chunk %d: near-duplicate of %s (%s) at %.6f\n", c.Index, m.SongName, m.Genre, m.Distance)
		} else {
			fmt.Fprintf(a.stdout, "chunk %d: new\n", c.Index)
		}
	}
	return nil
}

func (a *app) stats(ctx context.Context) error {
	db, store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	counts, err := store.GenreTrackCounts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "rows\t%d\n", n)
	genres := make([]string, 0, len(counts))
	for g := range counts {
		genres = append(genres, g)
	}
	sort.Strings(genres)
	for _, g := range genres {
		fmt.Fprintf(a.stdout, "%s\t%d\n", g, counts[g])
	}
	return nil
}
