// Package client is the Go client for the management REST API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rkershaw/proxydeck/internal/api"
)

type Client struct {
	BaseURL string
	APIKey  string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
	}
}

func (c *Client) ListHosts() (*api.ListHostsResponse, error) {
	var resp api.ListHostsResponse
	if err := c.do(http.MethodGet, "/v1/hosts", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateHost(req api.HostRequest) (*api.HostResponse, error) {
	var resp api.HostResponse
	if err := c.do(http.MethodPost, "/v1/hosts", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteHost(id int64) error {
	return c.do(http.MethodDelete, "/v1/hosts/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) SetHostEnabled(id int64, enabled bool) (*api.HostResponse, error) {
	action := "/disable"
	if enabled {
		action = "/enable"
	}
	var resp api.HostResponse
	if err := c.do(http.MethodPost, "/v1/hosts/"+strconv.FormatInt(id, 10)+action, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) EngineStatus() (*api.EngineStatusResponse, error) {
	var resp api.EngineStatusResponse
	if err := c.do(http.MethodGet, "/v1/engine/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) EngineReload() error {
	return c.do(http.MethodPost, "/v1/engine/reload", nil, nil)
}

func (c *Client) ListAudit(all bool) (*api.ListAuditResponse, error) {
	path := "/v1/audit"
	if all {
		path += "?all=1"
	}
	var resp api.ListAuditResponse
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp)
	}
	if respBody == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(respBody)
}

func parseError(resp *http.Response) error {
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("API error: status %d", resp.StatusCode)
}
