// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

// maxBodyBytes bounds how much of a listing response is read.
const maxBodyBytes = 32 << 20

// Client issues GET requests for JSON documents. All requests share one
// rate limiter so the three sources together stay under the backend's
// request budget.
type Client struct {
	HTTP       *http.Client
	Limiter    *rate.Limiter
	MaxRetries int
	UserAgent  string
	// Token, when set, is sent as a bearer token.
	Token string
}

// NewClient returns a Client allowing rps requests per second with an
// equal burst. rps <= 0 disables limiting.
func NewClient(httpClient *http.Client, rps float64, maxRetries int, userAgent, token string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &Client{
		HTTP:       httpClient,
		Limiter:    limiter,
		MaxRetries: maxRetries,
		UserAgent:  userAgent,
		Token:      token,
	}
}

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned HTTP %d", e.URL, e.Code)
}

// GetJSON fetches url and returns the response body. Any status other
// than 200 is a *StatusError.
func (c *Client) GetJSON(ctx context.Context, url string) ([]byte, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}
