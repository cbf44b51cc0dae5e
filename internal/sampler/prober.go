package sampler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

//go:generate mockgen -destination=./prober_mock.go -package=sampler -source=prober.go

const (
	defaultProbeTimeout = 10 * time.Second
	userAgent           = "collate-sampler/1.0"
)

// ErrProbeFailed marks a probe that produced no size. It is never fatal to a sampling run.
var ErrProbeFailed = errors.New("probe failed")

// Prober reports the size in bytes of the file behind a url.
type Prober interface {
	Probe(ctx context.Context, url string) (int64, error)
}

// HTTPProber issues one HEAD request per probe and reads Content-Length. It never retries.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber returns a prober whose requests give up after timeout. A zero timeout uses
// the default.
func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HTTPProber{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
			},
		},
	}
}

func (p *HTTPProber) Probe(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: status %d", ErrProbeFailed, resp.StatusCode)
	}

	raw := resp.Header.Get("Content-Length")
	size, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("%w: invalid content length %q", ErrProbeFailed, raw)
	}
	return size, nil
}
