package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports ingestion counters. A nil *Metrics records nothing.
type Metrics struct {
	tracks  *prometheus.CounterVec
	chunks  *prometheus.CounterVec
	extract *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tracks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "songvec_tracks_total",
			Help: "Tracks processed by final status",
		}, []string{"status"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "songvec_chunks_total",
			Help: "Chunk embeddings handed to the store by outcome",
		}, []string{"outcome"}),
		extract: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "songvec_extract_duration_seconds",
			Help:    "Latency of embedding extraction per chunk",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.tracks, m.chunks, m.extract} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) onTrack(s Status) {
	if m == nil {
		return
	}
	m.tracks.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) onChunk(affected int64) {
	if m == nil {
		return
	}
	outcome := "inserted"
	if affected == 0 {
		outcome = "duplicate"
	}
	m.chunks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) onExtract(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.extract.WithLabelValues(status).Observe(d.Seconds())
}
