// Package httpcheck implements [domain.HealthChecker] by probing an
// environment's HTTP health endpoint.
package httpcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultPath = "/healthz"

// Checker probes endpoint + Path and reports non-2xx responses as
// errors. The zero value uses http.DefaultClient and /healthz.
type Checker struct {
	Client *http.Client

	// Path is appended to the environment endpoint. Defaults to /healthz.
	Path string

	// Timeout bounds a single probe. Zero means the client's own timeout.
	Timeout time.Duration
}

func (c *Checker) Check(ctx context.Context, endpoint string) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	url := endpoint + c.path()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build health request for %q: %w", url, err)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("probe %q: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe %q: status %d", url, resp.StatusCode)
	}
	return nil
}

func (c *Checker) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

func (c *Checker) path() string {
	if c.Path != "" {
		return c.Path
	}
	return defaultPath
}
