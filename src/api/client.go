package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client submits processing and cancel requests to the inference service's
// HTTP surface. Streamed results come back over the WebSocket, not here.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	userID  string
	token   string
}

// ProcessRequest asks the server to run an action over text and stream the
// result to this user's WebSocket. RequestID is caller-supplied and must be
// unique while in flight.
type ProcessRequest struct {
	RequestID string `json:"requestId"`
	Text      string `json:"text"`
	Action    string `json:"action"`
}

type cancelRequest struct {
	UserID    string `json:"userId"`
	RequestID string `json:"requestId"`
}

// New creates an API client for baseURL (e.g. http://localhost:18080).
// token may be empty.
func New(baseURL, userID, token string) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.HTTPClient.Timeout = 10 * time.Second
	hc.Logger = nil // call sites log outcomes themselves

	return &Client{http: hc, baseURL: baseURL, userID: userID, token: token}
}

// Process submits a request for streaming.
func (c *Client) Process(ctx context.Context, req ProcessRequest) error {
	return c.post(ctx, "/api/process", req)
}

// Cancel asks the server to abort a request. The WebSocket cancel frame is
// the fast path; this is the durable one that works even while the stream is
// reconnecting.
func (c *Client) Cancel(ctx context.Context, requestID string) error {
	return c.post(ctx, "/api/cancel", cancelRequest{UserID: c.userID, RequestID: requestID})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: server returned %s", path, resp.Status)
	}
	return nil
}
