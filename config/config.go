// Package config loads songvec settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/viant/songvec/audio"
	"github.com/viant/songvec/catalog"
	"github.com/viant/songvec/embed"
	"github.com/viant/songvec/quota"
	"github.com/viant/songvec/segment"
	"github.com/viant/songvec/vector"
)

// Extractor kinds.
const (
	ExtractorSpectral = "spectral"
	ExtractorHTTP     = "http"
)

// Config is the full runtime configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Audio     AudioConfig     `yaml:"audio"`
	Quota     QuotaConfig     `yaml:"quota"`
	Ledger    LedgerConfig    `yaml:"ledger,omitempty"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
}

type StoreConfig struct {
	DSN            string  `yaml:"dsn"`
	Table          string  `yaml:"table,omitempty"`
	Dimension      int     `yaml:"dimension"`
	DedupThreshold float64 `yaml:"dedup_threshold"`
}

type CatalogConfig struct {
	AudioDir      string   `yaml:"audio_dir"`
	MetadataCSV   string   `yaml:"metadata_csv"`
	HeaderRows    int      `yaml:"header_rows"`
	IDColumn      int      `yaml:"id_column"`
	GenreColumn   int      `yaml:"genre_column"`
	Extensions    []string `yaml:"extensions,omitempty"`
	GenreFromTags bool     `yaml:"genre_from_tags,omitempty"`
}

type AudioConfig struct {
	TargetRate       int    `yaml:"target_rate"`
	DecodeRate       int    `yaml:"decode_rate"`
	FullTrackSeconds int    `yaml:"full_track_seconds"`
	ChunkSeconds     int    `yaml:"chunk_seconds"`
	FFmpeg           string `yaml:"ffmpeg,omitempty"`
}

type QuotaConfig struct {
	MaxTracksPerGenre int    `yaml:"max_tracks_per_genre"`
	Mode              string `yaml:"mode"` // fresh or resume
}

type LedgerConfig struct {
	Dir string `yaml:"dir,omitempty"` // empty disables the ledger
}

type ExtractorConfig struct {
	Kind              string  `yaml:"kind"` // spectral or http
	URL               string  `yaml:"url,omitempty"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	TimeoutSec        int     `yaml:"timeout_sec,omitempty"`
	Mean              float64 `yaml:"mean"`
	Std               float64 `yaml:"std"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g. ":9102"; empty disables /metrics
}

// Default returns the settings the pipeline was tuned with.
func Default() *Config {
	cat := catalog.DefaultOptions()
	return &Config{
		Store: StoreConfig{
			DSN:            "songvec.sqlite",
			Table:          vector.DefaultTable,
			Dimension:      embed.DefaultMels,
			DedupThreshold: vector.DefaultDedupThreshold,
		},
		Catalog: CatalogConfig{
			AudioDir:    "audio",
			MetadataCSV: "tracks.csv",
			HeaderRows:  cat.HeaderRows,
			IDColumn:    cat.IDColumn,
			GenreColumn: cat.GenreColumn,
			Extensions:  cat.Extensions,
		},
		Audio: AudioConfig{
			TargetRate:       segment.DefaultTargetRate,
			DecodeRate:       audio.DefaultDecodeRate,
			FullTrackSeconds: segment.DefaultFullTrackSeconds,
			ChunkSeconds:     segment.DefaultChunkSeconds,
		},
		Quota: QuotaConfig{
			MaxTracksPerGenre: quota.DefaultMaxTracksPerGenre,
			Mode:              string(quota.ModeFresh),
		},
		Extractor: ExtractorConfig{
			Kind: ExtractorSpectral,
			Mean: embed.DefaultMean,
			Std:  embed.DefaultStd,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (optional) over Default, applies SONGVEC_* environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Store.DSN = envStr("SONGVEC_DSN", c.Store.DSN)
	c.Store.Table = envStr("SONGVEC_TABLE", c.Store.Table)
	c.Store.Dimension = envInt("SONGVEC_DIMENSION", c.Store.Dimension)
	c.Store.DedupThreshold = envFloat("SONGVEC_DEDUP_THRESHOLD", c.Store.DedupThreshold)
	c.Catalog.AudioDir = envStr("SONGVEC_AUDIO_DIR", c.Catalog.AudioDir)
	c.Catalog.MetadataCSV = envStr("SONGVEC_METADATA_CSV", c.Catalog.MetadataCSV)
	c.Quota.MaxTracksPerGenre = envInt("SONGVEC_MAX_TRACKS_PER_GENRE", c.Quota.MaxTracksPerGenre)
	c.Quota.Mode = envStr("SONGVEC_QUOTA_MODE", c.Quota.Mode)
	c.Ledger.Dir = envStr("SONGVEC_LEDGER_DIR", c.Ledger.Dir)
	c.Extractor.Kind = envStr("SONGVEC_EXTRACTOR", c.Extractor.Kind)
	c.Extractor.URL = envStr("SONGVEC_MODEL_URL", c.Extractor.URL)
	c.Extractor.RequestsPerSecond = envFloat("SONGVEC_MODEL_RPS", c.Extractor.RequestsPerSecond)
	c.Log.Level = envStr("SONGVEC_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envStr("SONGVEC_LOG_FORMAT", c.Log.Format)
	c.Metrics.Addr = envStr("SONGVEC_METRICS_ADDR", c.Metrics.Addr)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Store.DSN == "" {
		return fmt.Errorf("config: store.dsn is required")
	}
	if c.Store.Dimension <= 0 {
		return fmt.Errorf("config: store.dimension must be positive, got %d", c.Store.Dimension)
	}
	if c.Store.DedupThreshold < 0 {
		return fmt.Errorf("config: store.dedup_threshold must not be negative")
	}
	if c.Catalog.HeaderRows < 0 || c.Catalog.IDColumn < 0 || c.Catalog.GenreColumn < 0 {
		return fmt.Errorf("config: catalog rows and columns must not be negative")
	}
	if err := c.Segmenter().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Audio.DecodeRate <= 0 {
		return fmt.Errorf("config: audio.decode_rate must be positive")
	}
	if c.Quota.MaxTracksPerGenre < 0 {
		return fmt.Errorf("config: quota.max_tracks_per_genre must not be negative")
	}
	if _, err := quota.ParseMode(c.Quota.Mode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(c.Extractor.Kind) {
	case ExtractorSpectral:
		if c.Extractor.Std <= 0 {
			return fmt.Errorf("config: extractor.std must be positive")
		}
	case ExtractorHTTP:
		if c.Extractor.URL == "" {
			return fmt.Errorf("config: extractor.url is required for the http extractor")
		}
	default:
		return fmt.Errorf("config: unknown extractor kind %q", c.Extractor.Kind)
	}
	return nil
}

// Segmenter returns the chunking settings.
func (c *Config) Segmenter() segment.Segmenter {
	return segment.Segmenter{
		TargetRate:       c.Audio.TargetRate,
		FullTrackSeconds: c.Audio.FullTrackSeconds,
		ChunkSeconds:     c.Audio.ChunkSeconds,
	}
}

// CatalogOptions returns the metadata CSV layout.
func (c *Config) CatalogOptions() catalog.Options {
	return catalog.Options{
		HeaderRows:  c.Catalog.HeaderRows,
		IDColumn:    c.Catalog.IDColumn,
		GenreColumn: c.Catalog.GenreColumn,
		Extensions:  c.Catalog.Extensions,
	}
}

// QuotaMode returns the validated quota mode.
func (c *Config) QuotaMode() quota.Mode {
	mode, _ := quota.ParseMode(c.Quota.Mode)
	return mode
}

// NewExtractor builds the configured embedding extractor. The spectral
// extractor yields one value per mel band, so its band count is the store
// dimension.
func (c *Config) NewExtractor() (embed.Extractor, error) {
	if strings.EqualFold(c.Extractor.Kind, ExtractorHTTP) {
		return embed.NewHTTPExtractor(embed.HTTPConfig{
			URL:               c.Extractor.URL,
			Dimension:         c.Store.Dimension,
			SampleRate:        c.Audio.TargetRate,
			RequestsPerSecond: c.Extractor.RequestsPerSecond,
			TimeoutSec:        c.Extractor.TimeoutSec,
		})
	}
	sc := embed.DefaultSpectralConfig()
	sc.SampleRate = c.Audio.TargetRate
	sc.Mels = c.Store.Dimension
	sc.Mean = c.Extractor.Mean
	sc.Std = c.Extractor.Std
	return embed.NewSpectralExtractor(sc)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
