package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPConfig configures HTTPExtractor.
type HTTPConfig struct {
	// URL is the model endpoint receiving one chunk per POST.
	URL string
	// Dimension is the expected embedding length.
	Dimension int
	// SampleRate is sent with every request.
	SampleRate int
	// RequestsPerSecond paces calls; zero means unlimited.
	RequestsPerSecond float64
	// TimeoutSec bounds one request (default 120).
	TimeoutSec int
	Headers    map[string]string
}

type extractRequest struct {
	Samples    []float32 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
}

type extractResponse struct {
	Embedding []float32 `json:"embedding"`
}

// HTTPExtractor posts chunks as JSON to a model server and reads back
// {"embedding": [...]}.
type HTTPExtractor struct {
	http       *httpClient
	dim        int
	sampleRate int
	limiter    *rate.Limiter
}

// NewHTTPExtractor creates a remote extractor.
func NewHTTPExtractor(cfg HTTPConfig) (*HTTPExtractor, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("embed: model URL is empty")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embed: invalid dimension %d", cfg.Dimension)
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &HTTPExtractor{
		http:       newHTTPClient(cfg.URL, cfg.TimeoutSec, cfg.Headers),
		dim:        cfg.Dimension,
		sampleRate: cfg.SampleRate,
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// Dimension returns the expected embedding length.
func (h *HTTPExtractor) Dimension() int { return h.dim }

// Extract sends one chunk to the model server.
func (h *HTTPExtractor) Extract(ctx context.Context, samples []float32) ([]float32, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	resp, err := h.http.post(ctx, extractRequest{Samples: samples, SampleRate: h.sampleRate})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: %s", readErrorBody(resp))
	}
	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	if err := checkDimension(out.Embedding, h.dim); err != nil {
		return nil, err
	}
	return out.Embedding, nil
}

type httpClient struct {
	client  *http.Client
	url     string
	headers map[string]string
}

func newHTTPClient(url string, timeoutSec int, headers map[string]string) *httpClient {
	if timeoutSec <= 0 {
		timeoutSec = 120
	}
	return &httpClient{
		client:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		url:     url,
		headers: headers,
	}
}

func (h *httpClient) post(ctx context.Context, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	return resp, nil
}

func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, r)
	r.Close()
}

func readErrorBody(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
}
