package deploy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthProber polls an HTTP health endpoint until it reports healthy or
// the wait window expires
type HealthProber struct {
	client   *http.Client
	url      string
	wait     time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewHealthProber creates a prober for the given URL
func NewHealthProber(url string, wait, interval time.Duration, logger *zap.Logger) *HealthProber {
	return &HealthProber{
		client:   &http.Client{Timeout: 5 * time.Second},
		url:      url,
		wait:     wait,
		interval: interval,
		logger:   logger,
	}
}

// Wait blocks until the endpoint returns 200 or the window expires.
// A timeout is an error: the deployment must not be reported as successful
// while the web service never came up.
func (p *HealthProber) Wait(ctx context.Context) error {
	deadline := time.Now().Add(p.wait)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if p.healthy(ctx) {
			p.logger.Info("Web service healthy", zap.String("url", p.url))
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("web service did not become healthy within %s (%s)", p.wait, p.url)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *HealthProber) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
