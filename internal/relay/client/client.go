// Package client implements the primary-device side of the relay: an HTTP
// client over the slot endpoints and the polling coordinator that waits for a
// secondary device's submission.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"handoff/internal/relay/models"
	dErrors "handoff/pkg/domain-errors"
	"handoff/pkg/platform/sentinel"
)

// Client talks to the relay's HTTP slot endpoints. It satisfies the Slot
// interface the Coordinator polls through, so tests can swap in an in-process
// store behind the same contract.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a relay client for the given base URL (scheme + host).
func New(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must use http or https, got %q", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Get polls the slot. 404 is a miss, the normal keep-polling outcome; any
// transport or server failure wraps sentinel.ErrUnavailable so the coordinator
// can retry instead of failing.
func (c *Client) Get(ctx context.Context, sid string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.slotURL(sid), nil)
	if err != nil {
		return "", false, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("fetch slot: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer drain(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		var body models.FetchResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", false, fmt.Errorf("decode fetch response: %w: %w", sentinel.ErrUnavailable, err)
		}
		if !body.Found {
			return "", false, nil
		}
		return body.Payload, true, nil
	case http.StatusNotFound:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("fetch slot: unexpected status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
}

// Put submits a payload for sid, as the secondary device does. A 400 surfaces
// the server's validation message so the user can be told to retry.
func (c *Client) Put(ctx context.Context, sid, payload string) error {
	body, err := json.Marshal(models.SubmitRequest{Payload: payload})
	if err != nil {
		return fmt.Errorf("encode submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.slotURL(sid), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit payload: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer drain(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return dErrors.New(dErrors.CodeBadRequest, decodeErrorDescription(resp.Body))
	default:
		return fmt.Errorf("submit payload: unexpected status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
}

// Delete clears the slot for sid. Idempotent server-side.
func (c *Client) Delete(ctx context.Context, sid string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.slotURL(sid), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("clear slot: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clear slot: unexpected status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	return nil
}

func (c *Client) slotURL(sid string) string {
	return c.baseURL + "/uploads/" + url.PathEscape(sid)
}

func decodeErrorDescription(r io.Reader) string {
	var body map[string]string
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return "submission rejected"
	}
	if desc := body["error_description"]; desc != "" {
		return desc
	}
	return "submission rejected"
}

// drain lets the transport reuse the connection.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<20))
	_ = body.Close()
}
