// Package blockstore is a concrete remote.Capability adapter for a generic
// anchor-addressed document store: every operation is a named tool call
// (query/create/update/fetch) against a single JSON-RPC-style HTTP
// endpoint, configured via remote.tool_names (spec.md §6). The request
// construction, exponential-backoff retry on rate limiting, and GraphQL-
// style error unwrapping are grounded on the teacher's
// internal/linear.Client.Execute, generalized from Linear's fixed GraphQL
// query to an arbitrary named-tool call.
package blockstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/tjpilant/idse-spine/internal/config"
	"github.com/tjpilant/idse-spine/internal/remote"
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 4
	retryDelay     = 500 * time.Millisecond
)

// Client is a remote.Capability backed by a single anchor (a container or
// workspace identifier the remote understands) and an API key, which the
// caller reads from the remote.credentials_dir directory.
type Client struct {
	Endpoint   string
	Anchor     string
	APIKey     string
	Tools      config.ToolNames
	HTTPClient *http.Client
}

// New builds a Client from the spine's loaded remote configuration.
func New(endpoint, anchor, apiKey string) *Client {
	return &Client{
		Endpoint:   endpoint,
		Anchor:     anchor,
		APIKey:     apiKey,
		Tools:      config.ToolNamesFor(),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type toolCall struct {
	Tool   string         `json:"tool"`
	Anchor string         `json:"anchor"`
	Args   map[string]any `json:"args"`
}

type toolResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// call executes one named tool invocation, retrying with exponential,
// jittered backoff on HTTP 429 the same way the teacher's Execute does for Linear's
// GraphQL endpoint.
func (c *Client) call(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(toolCall{Tool: tool, Anchor: c.Anchor, Args: args})
	if err != nil {
		return nil, fmt.Errorf("marshal tool call: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.APIKey)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt+1, maxRetries+1, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response failed (attempt %d/%d): %w", attempt+1, maxRetries+1, err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryDelay * time.Duration(1<<attempt)
			delay += time.Duration(rand.Int63n(int64(delay) / 2))
			lastErr = fmt.Errorf("rate limited (attempt %d/%d), retrying after %v", attempt+1, maxRetries+1, delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, remote.ErrRemoteNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("tool call %s failed: %s (status %d)", tool, string(respBody), resp.StatusCode)
		}

		var out toolResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, fmt.Errorf("parse tool response: %w (body: %s)", err, string(respBody))
		}
		if out.Error != nil {
			if out.Error.Code == "not_found" {
				return nil, remote.ErrRemoteNotFound
			}
			return nil, fmt.Errorf("tool call %s: %s", tool, out.Error.Message)
		}
		return out.Result, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries+1, lastErr)
}

func (c *Client) Query(ctx context.Context, filter map[string]any) ([]remote.Record, error) {
	raw, err := c.call(ctx, c.Tools.Query, map[string]any{"filter": filter})
	if err != nil {
		return nil, err
	}
	var recs []remote.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal query result: %w", err)
	}
	return recs, nil
}

func (c *Client) Create(ctx context.Context, properties map[string]any) (remote.Record, error) {
	raw, err := c.call(ctx, c.Tools.Create, map[string]any{"properties": properties})
	if err != nil {
		return remote.Record{}, err
	}
	var rec remote.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return remote.Record{}, fmt.Errorf("unmarshal create result: %w", err)
	}
	return rec, nil
}

func (c *Client) Update(ctx context.Context, remoteID string, properties map[string]any) error {
	_, err := c.call(ctx, c.Tools.Update, map[string]any{"id": remoteID, "properties": properties})
	return err
}

func (c *Client) Fetch(ctx context.Context, remoteID string) (remote.Record, error) {
	raw, err := c.call(ctx, c.Tools.Fetch, map[string]any{"id": remoteID})
	if err != nil {
		return remote.Record{}, err
	}
	var rec remote.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return remote.Record{}, fmt.Errorf("unmarshal fetch result: %w", err)
	}
	return rec, nil
}

var _ remote.Capability = (*Client)(nil)
