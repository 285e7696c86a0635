// Package metadata implements the instance metadata crawler: it walks the
// self-describing tree exposed by the link-local metadata service and
// flattens it into identifier-safe facts.
package metadata

import (
	"context"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds each individual metadata request.
const DefaultTimeout = 5 * time.Second

// Client issues GET requests against the metadata service. It wraps an
// explicit *http.Client so the transport lifecycle is scoped to one crawl;
// there is no package-level session state.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a Client with the given per-request timeout.
// A zero or negative timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// NewClientWithHTTP wraps an existing *http.Client.
func NewClientWithHTTP(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// Get fetches uri and returns the response body. Connection errors,
// timeouts, non-2xx statuses, and empty bodies all report ok=false; the
// crawler treats every one of them uniformly as "field unavailable".
func (c *Client) Get(ctx context.Context, uri string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		return "", false
	}
	return string(body), true
}
