package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single call.
const DefaultTimeout = 30 * time.Second

// HTTPClient provides HTTP communication with the backend.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTransport sets the RoundTripper, normally the session decorator
// wrapped around NewTransport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *HTTPClient) { c.client.Transport = rt }
}

// WithTimeout overrides DefaultTimeout. Zero disables the timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.client.Timeout = d }
}

// NewHTTPClient creates a client for server. A missing scheme defaults
// to http.
func NewHTTPClient(server string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: NormalizeURL(server),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeURL adds http:// when server has no scheme and drops
// trailing slashes.
func NormalizeURL(server string) string {
	u := strings.TrimSpace(server)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return strings.TrimRight(u, "/")
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body.
func (c *HTTPClient) Put(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Delete performs a DELETE request.
func (c *HTTPClient) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do sends method to path. A non-nil body is sent as JSON.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.client.Do(req)
}

// DoJSON sends the request and decodes the answer with ParseResponse.
func (c *HTTPClient) DoJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return ParseResponse(resp, out)
}
