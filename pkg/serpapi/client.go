// Package serpapi is a minimal client for the SerpAPI Google search endpoint.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://serpapi.com"

// Client performs web searches.
type Client interface {
	Search(ctx context.Context, query string) (*SearchResponse, error)
}

// SearchResponse is the subset of a SerpAPI response the resolver reads.
type SearchResponse struct {
	OrganicResults []OrganicResult `json:"organic_results"`
	Error          string          `json:"error,omitempty"`
}

// OrganicResult is one organic search hit in relevance order.
type OrganicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

// StatusError reports a non-200 response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("serpapi: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLocale sets the Google country and language (gl/hl) parameters.
func WithLocale(country, language string) Option {
	return func(c *httpClient) {
		c.country = country
		c.language = language
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	country  string
	language string
	http     *http.Client
}

// NewClient creates a SerpAPI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	params := url.Values{
		"engine":  {"google"},
		"q":       {query},
		"api_key": {c.apiKey},
	}
	if c.country != "" {
		params.Set("gl", c.country)
	}
	if c.language != "" {
		params.Set("hl", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "serpapi: unmarshal response")
	}
	// "Google hasn't returned any results" arrives as a 200 with Error set
	// and no organic results; callers treat it as an empty page.
	return &result, nil
}
