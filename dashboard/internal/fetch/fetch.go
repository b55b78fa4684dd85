package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fieldwatch/fieldwatch/pkg/types"
)

// DefaultBaseURL is used when neither a flag nor API_BASE_URL is set.
const DefaultBaseURL = "http://localhost:3001"

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

var errNotJSON = errors.New("response is not JSON")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// IsAborted reports whether err came from the caller cancelling the request.
// Deadline expiry is a failure, not an abort.
func IsAborted(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Client fetches sections of the dashboard document.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for baseURL. hc may be nil, in which case a client
// with a 30s timeout is used.
func New(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch returns the sub-document stored under key.
func (c *Client) Fetch(ctx context.Context, key types.Key) (json.RawMessage, error) {
	body, err := c.get(ctx, "/api/"+url.PathEscape(string(key)))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	return unwrap(body), nil
}

// Keys returns the keys advertised by GET /api/.
func (c *Client) Keys(ctx context.Context) ([]types.Key, error) {
	body, err := c.get(ctx, "/api/")
	if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}
	var idx types.Index
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, fmt.Errorf("fetch index: decode: %w", err)
	}
	return idx.AvailableKeys, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Surface the context error itself so IsAborted sees it.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("reading body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(resp, body)}
	}
	if !json.Valid(body) {
		return nil, errNotJSON
	}
	return body, nil
}

// unwrap returns the data member of a {data: ...} envelope, or body itself
// when it is not one.
func unwrap(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return json.RawMessage(trimmed)
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Data == nil {
		return json.RawMessage(trimmed)
	}
	return env.Data
}

// errorMessage prefers the API's {"error": "..."} text over the status line.
func errorMessage(resp *http.Response, body []byte) string {
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
