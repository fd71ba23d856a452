// Package ils is a thin client for the Alma REST API: item-set management,
// PO-line creation and bib lookup. The EDI core never touches this package;
// it exists for the operator commands that run against the ILS directly.
package ils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the North America hosted instance.
const DefaultBaseURL = "https://api-na.hosted.exlibrisgroup.com/almaws/v1"

// maxMembersPerCall is the Alma-side limit on set members per request.
// Larger batches are chunked by AddMembers.
const maxMembersPerCall = 1000

// Client calls the Alma REST API. The API key travels as a query
// parameter on every request.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// RetryWait is how long to pause before the single retry after a 429.
	RetryWait time.Duration
}

// New returns a client with sane defaults.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		RetryWait:  5 * time.Second,
	}
}

// APIError is a non-2xx response from Alma.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("alma API error: HTTP %d: %s", e.StatusCode, body)
}

// do issues one request, retrying exactly once on 429. Success is 200 or
// 201; anything else is an *APIError.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.APIKey)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	endpoint := c.BaseURL + path + "?" + params.Encode()

	for attempt := 0; ; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			if out != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					return fmt.Errorf("decoding response: %w", err)
				}
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests && attempt == 0:
			log.Printf("WARN rate limited on %s %s, retrying after %s", method, path, c.RetryWait)
			select {
			case <-time.After(c.RetryWait):
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}
	}
}
