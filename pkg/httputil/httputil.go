package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"go.uber.org/ratelimit"
)

const defaultTimeout = 15 * time.Second

// Client is a small rate-limited HTTP helper shared by the provider
// implementations. Every request goes through the limiter, so a single
// provider never exceeds its advertised request budget regardless of how
// many aggregator calls are in flight.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
}

// NewClient returns a client performing at most requestsPerSecond calls;
// zero means unlimited. A zero timeout falls back to a 15s default.
func NewClient(timeout time.Duration, requestsPerSecond int) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limiter := ratelimit.NewUnlimited()
	if requestsPerSecond > 0 {
		limiter = ratelimit.New(requestsPerSecond)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// Get performs a rate-limited GET and returns status code and body.
func (c *Client) Get(ctx context.Context, url string) (int, []byte, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// Post performs a rate-limited POST with the given body.
func (c *Client) Post(ctx context.Context, url string, body []byte) (int, []byte, error) {
	return c.do(ctx, http.MethodPost, url, body)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	c.limiter.Take()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, payload, nil
}

// CheckStatus converts a non-2xx response into an error carrying the body.
func CheckStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	return fmt.Errorf("unexpected status %d: %s", status, string(body))
}
