// Package connectivity decides whether the backend is reachable.
package connectivity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Checker reports whether the backend can be reached right now.
// Any failure counts as offline.
type Checker interface {
	CheckConnection(ctx context.Context) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) bool

// CheckConnection implements Checker.
func (f CheckerFunc) CheckConnection(ctx context.Context) bool { return f(ctx) }

const defaultProbeTimeout = 5 * time.Second

// Probe checks reachability with GET <base>/health.
type Probe struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithTimeout bounds each probe. Non-positive values keep the default.
func WithTimeout(d time.Duration) ProbeOption {
	return func(p *Probe) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithHTTPClient overrides the client used for probing.
func WithHTTPClient(c *http.Client) ProbeOption {
	return func(p *Probe) { p.client = c }
}

// NewProbe creates a probe against the backend at baseURL.
func NewProbe(baseURL string, logger *slog.Logger, opts ...ProbeOption) (*Probe, error) {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("probe url %q must be http(s)", baseURL)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &Probe{
		url:     base + "/health",
		timeout: defaultProbeTimeout,
		client:  http.DefaultClient,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// CheckConnection implements Checker. Only a 2xx answer counts as online.
func (p *Probe) CheckConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.logger.Warn("probe request failed", "error", err)
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("backend unreachable", "url", p.url, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		p.logger.Debug("backend unhealthy", "url", p.url, "status", resp.StatusCode)
	}
	return ok
}
