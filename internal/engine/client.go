// Package engine is the client for the reverse-proxy engine's admin API.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Status is the engine's liveness report.
type Status struct {
	Running       bool   `json:"running"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
}

// CertInfo is the engine's certificate metadata for one domain.
type CertInfo struct {
	Valid    bool    `json:"valid"`
	NotAfter *int64  `json:"not_after,omitempty"`
	Issuer   *string `json:"issuer,omitempty"`
}

// APIError is a non-2xx response from the admin API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("engine admin API: status %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether err is a transient engine failure: a network
// error or a 5xx. A 4xx means the submitted document was rejected and
// retrying the same bytes cannot help.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Client talks to the engine's admin API.
type Client struct {
	adminURL string
	http     *http.Client
}

// NewClient creates a client for the admin API at adminURL.
func NewClient(adminURL string) *Client {
	return &Client{
		adminURL: strings.TrimRight(adminURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Load submits a full configuration document, wholly replacing the engine's
// current configuration.
func (c *Client) Load(ctx context.Context, doc []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.adminURL+"/load", bytes.NewReader(doc))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}
	return nil
}

// Status probes the engine's liveness endpoint.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.adminURL+"/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode engine status: %w", err)
	}
	return &st, nil
}

// CertificateInfo fetches certificate metadata for a single domain.
func (c *Client) CertificateInfo(ctx context.Context, domain string) (*CertInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.adminURL+"/certificates/"+url.PathEscape(domain), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("certificate info for %s: %w", domain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}

	var info CertInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode certificate info: %w", err)
	}
	return &info, nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 1<<10))
	return strings.TrimSpace(string(b))
}
