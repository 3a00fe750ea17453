// Package google is a client for the Places API (New), used to find a
// business's place ID and to backfill its website.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"

	textSearchFieldMask = "places.id,places.displayName,places.formattedAddress,places.websiteUri,places.rating,places.userRatingCount"
	detailsFieldMask    = "id,displayName,formattedAddress,websiteUri,nationalPhoneNumber"
)

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, query string) (*TextSearchResponse, error)
	PlaceDetails(ctx context.Context, placeID string) (*PlaceDetails, error)
}

// TextSearchResponse is the response from Places Text Search.
type TextSearchResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by text search.
type Place struct {
	ID               string      `json:"id"`
	DisplayName      DisplayName `json:"displayName"`
	FormattedAddress string      `json:"formattedAddress,omitempty"`
	WebsiteURI       string      `json:"websiteUri,omitempty"`
	Rating           float64     `json:"rating,omitempty"`
	UserRatingCount  int         `json:"userRatingCount,omitempty"`
}

// PlaceDetails is the subset of Place Details the resolver reads.
type PlaceDetails struct {
	ID                  string      `json:"id"`
	DisplayName         DisplayName `json:"displayName"`
	FormattedAddress    string      `json:"formattedAddress,omitempty"`
	WebsiteURI          string      `json:"websiteUri,omitempty"`
	NationalPhoneNumber string      `json:"nationalPhoneNumber,omitempty"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// StatusError reports a non-200 response. NOT_FOUND place IDs surface as
// a 404 here.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("google: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRegion sets the regionCode used to bias text search results.
func WithRegion(code string) Option {
	return func(c *httpClient) {
		c.region = code
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	region  string
	http    *http.Client
}

// NewClient creates a Google Places API client.
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

type textSearchRequest struct {
	TextQuery  string `json:"textQuery"`
	RegionCode string `json:"regionCode,omitempty"`
}

func (c *httpClient) TextSearch(ctx context.Context, query string) (*TextSearchResponse, error) {
	body, err := json.Marshal(textSearchRequest{TextQuery: query, RegionCode: c.region})
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	var result TextSearchResponse
	if err := c.do(req, textSearchFieldMask, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) PlaceDetails(ctx context.Context, placeID string) (*PlaceDetails, error) {
	if placeID == "" {
		return nil, eris.New("google: empty place id")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+url.PathEscape(placeID), nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	var result PlaceDetails
	if err := c.do(req, detailsFieldMask, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) do(req *http.Request, fieldMask string, out any) error {
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}
