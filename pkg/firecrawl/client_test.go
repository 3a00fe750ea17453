package firecrawl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/scrape", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://boltonbathrooms.co.uk", req.URL)
		assert.Equal(t, []string{"links"}, req.Formats)
		assert.Equal(t, 8000, req.Timeout)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"links": ["https://www.instagram.com/boltonbathrooms/", "https://boltonbathrooms.co.uk/about"],
				"metadata": {"title": "Bolton Bathrooms", "sourceURL": "https://boltonbathrooms.co.uk", "statusCode": 200}
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Scrape(context.Background(), ScrapeRequest{
		URL:     "https://boltonbathrooms.co.uk",
		Formats: []string{"links"},
		Timeout: 8000,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data.Links, 2)
	assert.Equal(t, 200, resp.Data.Metadata.StatusCode)
}

func TestScrape_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"insufficient credits"}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Scrape(context.Background(), ScrapeRequest{URL: "https://a.example"})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "insufficient credits")
}

func TestScrape_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Scrape(context.Background(), ScrapeRequest{URL: "https://a.example"})
	assert.ErrorContains(t, err, "decode response")
}

func TestScrape_OmitsEmptyFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, hasFormats := raw["formats"]
		_, hasTimeout := raw["timeout"]
		assert.False(t, hasFormats)
		assert.False(t, hasTimeout)
		_, _ = w.Write([]byte(`{"success":true,"data":{"metadata":{}}}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Scrape(context.Background(), ScrapeRequest{URL: "https://a.example"})
	require.NoError(t, err)
}

func TestOptions(t *testing.T) {
	t.Parallel()
	hc := &http.Client{}
	c := NewClient("k", WithBaseURL(""), WithHTTPClient(hc)).(*httpClient)
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Same(t, hc, c.http)
}
