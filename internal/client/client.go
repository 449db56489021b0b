// Package client is a small HTTP client for the kikitori API, used by
// the kikitorictl command.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kikitori-app/kikitori-go/internal/api"
)

// Client talks to a running kikitori server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the given base URL. token may be empty when
// the server runs with authentication disabled.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Read submits text for synthesis and returns the activated session.
func (c *Client) Read(ctx context.Context, text, voice string) (*api.SessionResponse, error) {
	body, err := json.Marshal(api.ReadRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp api.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/read", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists saved history items, most recent first.
func (c *Client) History(ctx context.Context) (*api.HistoryResponse, error) {
	var resp api.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/v1/history", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resume re-activates a history item and returns the restored session.
func (c *Client) Resume(ctx context.Context, id string) (*api.SessionResponse, error) {
	var resp api.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/history/"+id+"/resume", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remove deletes a history item.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/history/"+id, nil, nil)
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var resp api.HealthResponse
	return c.do(ctx, http.MethodGet, "/v1/healthz", nil, &resp)
}

// do issues a request and decodes the JSON response into out when it
// is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiError extracts the server's error message when it sent one.
func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	var er api.ErrorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, er.Error)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
}
