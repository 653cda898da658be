// Package httpclient is a client for the forwarder status API.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// APIError is returned for responses with an error status
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client provides HTTP client for the status API
type Client struct {
	config     Config
	httpClient *http.Client
	token      string
	baseURL    *url.URL
}

// NewClient creates a new status API client
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	if config.ServerURL == "" {
		return nil, fmt.Errorf("ServerURL is required")
	}

	baseURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		token:      config.Token,
		baseURL:    baseURL,
	}, nil
}

// GetHealth returns the health of the forwarder. An unhealthy forwarder is
// reported through HealthResponse.Healthy, not as an error.
func (c *Client) GetHealth(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(ctx, "/api/v1/health", &resp, false, http.StatusServiceUnavailable)
	if err != nil {
		return nil, fmt.Errorf("failed to get health status: %w", err)
	}
	return &resp, nil
}

// ListLpars returns the forwarded partitions
func (c *Client) ListLpars(ctx context.Context) (*LparsResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client has no token - set Config.Token or call SetToken() first")
	}

	var resp LparsResponse
	if err := c.doRequest(ctx, "/api/v1/lpars", &resp, true); err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	return &resp, nil
}

// GetStats returns forwarding statistics (admin only)
func (c *Client) GetStats(ctx context.Context) (*StatsResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client has no token - set Config.Token or call SetToken() first")
	}

	var resp StatsResponse
	if err := c.doRequest(ctx, "/api/v1/admin/stats", &resp, true); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &resp, nil
}

// doRequest performs a GET request with optional authentication. Error
// statuses listed in accept are decoded into respBody like a success.
func (c *Client) doRequest(ctx context.Context, path string, respBody any, requireAuth bool, accept ...int) error {
	fullURL := c.baseURL.ResolveReference(&url.URL{Path: path})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 && !accepted(resp.StatusCode, accept) {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err == nil {
			apiErr.Message = errResp.Message
		}
		return apiErr
	}

	if respBody != nil {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func accepted(status int, accept []int) bool {
	for _, s := range accept {
		if s == status {
			return true
		}
	}
	return false
}

// GetToken returns the current bearer token
func (c *Client) GetToken() string {
	return c.token
}

// SetToken sets the bearer token
func (c *Client) SetToken(token string) {
	c.token = token
}
