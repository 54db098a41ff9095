package remote

import (
	"context"
	"net/http"
	"strings"
	"time"

	"lifesync/internal/domain"
	"lifesync/internal/metrics"
)

// Prober implements domain.ConnectivityMonitor by polling the remote health
// endpoint.
type Prober struct {
	url     string
	client  *http.Client
	timeout time.Duration
	metrics *metrics.Collector
}

var _ domain.ConnectivityMonitor = (*Prober)(nil)

// NewProber probes {baseURL}/api/health, giving up after timeout.
func NewProber(baseURL string, timeout time.Duration, m *metrics.Collector) *Prober {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Prober{
		url:     strings.TrimRight(baseURL, "/") + "/api/health",
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		metrics: m,
	}
}

// IsOnline reports whether the health endpoint answered 2xx in time.
func (p *Prober) IsOnline(ctx context.Context) bool {
	online := p.probe(ctx)
	p.metrics.RecordOnline(online)
	return online
}

func (p *Prober) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
