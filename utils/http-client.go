package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// HTTPClient wraps the standard client with the timeouts used for all
// calls to collaborator services.
type HTTPClient struct {
	client *http.Client
}

func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Do executes the request through the given circuit breaker. The response
// body is fully read and returned so the breaker sees transport errors only.
func (c *HTTPClient) Do(cb *gobreaker.CircuitBreaker, req *http.Request) (int, []byte, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		return &httpResult{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return 0, nil, err
	}

	r := result.(*httpResult)
	return r.status, r.body, nil
}

// Get performs a GET through the breaker.
func (c *HTTPClient) Get(ctx context.Context, cb *gobreaker.CircuitBreaker, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %v", err)
	}
	return c.Do(cb, req)
}

// Post performs a JSON POST through the breaker.
func (c *HTTPClient) Post(ctx context.Context, cb *gobreaker.CircuitBreaker, url string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(cb, req)
}

type httpResult struct {
	status int
	body   []byte
}
