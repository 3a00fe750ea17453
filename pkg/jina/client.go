// Package jina is a client for the Jina AI Reader, which renders a page in
// a real browser and returns its content and outbound links.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"slices"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://r.jina.ai"

// Client defines the Jina Reader operations.
type Client interface {
	// Read renders targetURL and returns its markdown plus a links summary.
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
}

// ReadResponse is the parsed Reader response.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData holds the rendered page.
type ReadData struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	// Links maps anchor text to href, present when the links summary is
	// requested.
	Links map[string]string `json:"links,omitempty"`
}

var markdownLink = regexp.MustCompile(`\]\((https?://[^\s)]+)`)

// LinkURLs returns every href on the page in document order, taken from the
// markdown content. Summary hrefs missing from the content follow, sorted,
// since the summary itself is unordered.
func (d ReadData) LinkURLs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range markdownLink.FindAllStringSubmatch(d.Content, -1) {
		if href := m[1]; !seen[href] {
			seen[href] = true
			out = append(out, href)
		}
	}
	var rest []string
	for _, href := range d.Links {
		if !seen[href] {
			seen[href] = true
			rest = append(rest, href)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// StatusError reports a non-200 response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jina: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the Reader base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Jina Reader client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Return-Format", "markdown")
	req.Header.Set("X-With-Links-Summary", "true")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "jina: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "jina: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result ReadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal response")
	}
	return &result, nil
}
