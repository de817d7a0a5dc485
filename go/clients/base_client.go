package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// BaseClient is a thin HTTP client shared by the external API clients.
type BaseClient struct {
	baseURL string
	client  *http.Client
	params  url.Values
}

func NewBaseClient(baseURL string) *BaseClient {
	return &BaseClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		params: url.Values{},
	}
}

// SetParam adds a query parameter sent with every request.
func (c *BaseClient) SetParam(key, value string) {
	c.params.Set(key, value)
}

func (c *BaseClient) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// Get performs a GET against endpoint with the default parameters merged
// into extra.
func (c *BaseClient) Get(ctx context.Context, endpoint string, extra url.Values) ([]byte, error) {
	query := url.Values{}
	for key, vals := range c.params {
		query[key] = vals
	}
	for key, vals := range extra {
		query[key] = vals
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return responseBody, nil
}
