package embed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunc(t *testing.T) {
	_, err := Func(4, nil)
	require.Error(t, err)
	_, err = Func(0, func(context.Context, []float32) ([]float32, error) { return nil, nil })
	require.Error(t, err)

	ex, err := Func(2, func(_ context.Context, s []float32) ([]float32, error) {
		return []float32{s[0], float32(len(s))}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ex.Dimension())
	got, err := ex.Extract(context.Background(), []float32{5, 6, 7})
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 3}, got)

	bad, err := Func(3, func(context.Context, []float32) ([]float32, error) { return []float32{1}, nil })
	require.NoError(t, err)
	_, err = bad.Extract(context.Background(), []float32{1})
	require.Error(t, err)

	boom := errors.New("boom")
	failing, err := Func(1, func(context.Context, []float32) ([]float32, error) { return nil, boom })
	require.NoError(t, err)
	_, err = failing.Extract(context.Background(), []float32{1})
	require.ErrorIs(t, err, boom)
}

func TestHTTPExtractor(t *testing.T) {
	var got extractRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(extractResponse{Embedding: []float32{0.5, -1, 2}})
	}))
	defer srv.Close()

	ex, err := NewHTTPExtractor(HTTPConfig{
		URL:        srv.URL,
		Dimension:  3,
		SampleRate: 16000,
		Headers:    map[string]string{"X-Api-Key": "secret"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ex.Dimension())

	emb, err := ex.Extract(context.Background(), []float32{0.1, 0.2})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 2}, emb)
	assert.Equal(t, []float32{0.1, 0.2}, got.Samples)
	assert.Equal(t, 16000, got.SampleRate)
}

func TestHTTPExtractor_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		ex, err := NewHTTPExtractor(HTTPConfig{URL: srv.URL, Dimension: 2})
		require.NoError(t, err)
		_, err = ex.Extract(context.Background(), []float32{1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not loaded")
	})
	t.Run("wrong dimension", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embedding":[1,2,3]}`))
		}))
		defer srv.Close()
		ex, err := NewHTTPExtractor(HTTPConfig{URL: srv.URL, Dimension: 2})
		require.NoError(t, err)
		_, err = ex.Extract(context.Background(), []float32{1})
		require.Error(t, err)
	})
	t.Run("bad json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()
		ex, err := NewHTTPExtractor(HTTPConfig{URL: srv.URL, Dimension: 2})
		require.NoError(t, err)
		_, err = ex.Extract(context.Background(), []float32{1})
		require.Error(t, err)
	})
	t.Run("cancelled", func(t *testing.T) {
		ex, err := NewHTTPExtractor(HTTPConfig{URL: "http://127.0.0.1:1", Dimension: 2, RequestsPerSecond: 1})
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = ex.Extract(ctx, []float32{1})
		require.Error(t, err)
	})
	t.Run("config", func(t *testing.T) {
		_, err := NewHTTPExtractor(HTTPConfig{Dimension: 2})
		require.Error(t, err)
		_, err = NewHTTPExtractor(HTTPConfig{URL: "http://x"})
		require.Error(t, err)
	})
}

func sine(freq float64, rate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestSpectralExtractor_Silence(t *testing.T) {
	ex, err := NewSpectralExtractor(DefaultSpectralConfig())
	require.NoError(t, err)
	assert.Equal(t, 128, ex.Dimension())

	emb, err := ex.Extract(context.Background(), make([]float32, 48000))
	require.NoError(t, err)
	require.Len(t, emb, 128)
	want := (-100 - DefaultMean) / DefaultStd
	for _, v := range emb {
		assert.InDelta(t, want, v, 1e-4)
	}
}

func TestSpectralExtractor_SinePeak(t *testing.T) {
	ex, err := NewSpectralExtractor(DefaultSpectralConfig())
	require.NoError(t, err)

	emb, err := ex.Extract(context.Background(), sine(1000, 16000, 48000))
	require.NoError(t, err)

	best := 0
	for i, v := range emb {
		if v > emb[best] {
			best = i
		}
	}
	assert.InDelta(t, 1000, ex.MelCenter(best), 60)

	again, err := ex.Extract(context.Background(), sine(1000, 16000, 48000))
	require.NoError(t, err)
	assert.Equal(t, emb, again)

	other, err := ex.Extract(context.Background(), sine(3000, 16000, 48000))
	require.NoError(t, err)
	assert.NotEqual(t, emb, other)
}

func TestSpectralExtractor_Invalid(t *testing.T) {
	cfg := DefaultSpectralConfig()
	cfg.FFTSize = 1023
	_, err := NewSpectralExtractor(cfg)
	require.Error(t, err)

	cfg = DefaultSpectralConfig()
	cfg.Std = 0
	_, err = NewSpectralExtractor(cfg)
	require.Error(t, err)

	ex, err := NewSpectralExtractor(DefaultSpectralConfig())
	require.NoError(t, err)
	_, err = ex.Extract(context.Background(), nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ex.Extract(ctx, make([]float32, 1000))
	require.ErrorIs(t, err, context.Canceled)
}
