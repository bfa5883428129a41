package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Wire headers of the market API.
const (
	callerHeader      = "X-Caller-Identity"
	idempotencyHeader = "Idempotency-Key"
)

// ErrStatus reports an unexpected HTTP status.
var ErrStatus = errors.New("unexpected status")

// Client issues JSON requests on behalf of an identity.
type Client struct {
	baseURL string
	client  *http.Client
}

func newClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do sends body as JSON and decodes a 2xx response into out. A non-2xx
// response is returned as an ErrStatus error carrying the API error code.
func (c *Client) do(ctx context.Context, method, path, caller, key string, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var ae apiError
		_ = json.Unmarshal(data, &ae)
		return fmt.Errorf("%w: %s %s: %d %s", ErrStatus, method, path, resp.StatusCode, ae.Code)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", "", nil, out)
}

func (c *Client) post(ctx context.Context, path, caller string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, caller, uuid.NewString(), body, out)
}
