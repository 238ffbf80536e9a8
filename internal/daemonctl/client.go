// Package daemonctl is the HTTP control client the CLI uses to talk to a
// running factstream daemon.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"factstream/internal/daemon"
)

// Client talks to the daemon's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a client for the given bind address ("host:port").
func New(bind string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Health reports whether the daemon is reachable.
func (c *Client) Health(ctx context.Context) error {
	var payload struct {
		Status string `json:"status"`
	}
	return c.get(ctx, "/api/health", &payload)
}

// Status fetches the daemon's pipeline and corpus status.
func (c *Client) Status(ctx context.Context) (daemon.Status, error) {
	var status daemon.Status
	err := c.get(ctx, "/api/status", &status)
	return status, err
}

// ReferenceFiles lists the corpus files the daemon can see.
func (c *Client) ReferenceFiles(ctx context.Context) ([]daemon.ReferenceFile, error) {
	var files []daemon.ReferenceFile
	err := c.get(ctx, "/api/reference-files", &files)
	return files, err
}

// StartSession asks the daemon to begin fact-checking sourceURL.
func (c *Client) StartSession(ctx context.Context, sourceURL string) (daemon.Status, error) {
	var status daemon.Status
	body := map[string]string{"source_url": sourceURL}
	err := c.post(ctx, "/api/session/start", body, &status)
	return status, err
}

// StopSession asks the daemon to stop the live session. Blocks until the
// session has drained.
func (c *Client) StopSession(ctx context.Context) (daemon.Status, error) {
	var status daemon.Status
	err := c.post(ctx, "/api/session/stop", nil, &status)
	return status, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
