package jina

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/https://boltonbathrooms.co.uk", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.Header.Get("X-With-Links-Summary"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": 200,
			"data": {
				"title": "Bolton Bathrooms",
				"url": "https://boltonbathrooms.co.uk/",
				"content": "Bathroom fitters in Bolton. [Contact](https://boltonbathrooms.co.uk/contact)",
				"links": {
					"Facebook": "https://www.facebook.com/boltonbathrooms",
					"Contact": "https://boltonbathrooms.co.uk/contact"
				}
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Read(context.Background(), "https://boltonbathrooms.co.uk")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "Bolton Bathrooms", resp.Data.Title)
	assert.Equal(t, []string{
		"https://boltonbathrooms.co.uk/contact",
		"https://www.facebook.com/boltonbathrooms",
	}, resp.Data.LinkURLs())
}

func TestLinkURLs_DocumentOrder(t *testing.T) {
	t.Parallel()

	d := ReadData{
		Content: "[Yell](https://www.yell.com/biz/acme-1/) then [Facebook](https://facebook.com/acme) " +
			"and ![logo](https://cdn.example/logo.png) and [Yell again](https://www.yell.com/biz/acme-1/)",
		Links: map[string]string{
			"Facebook":    "https://facebook.com/acme",
			"Instagram":   "https://instagram.com/acme",
			"Checkatrade": "https://www.checkatrade.com/trades/acme",
		},
	}
	assert.Equal(t, []string{
		"https://www.yell.com/biz/acme-1/",
		"https://facebook.com/acme",
		"https://cdn.example/logo.png",
		"https://instagram.com/acme",
		"https://www.checkatrade.com/trades/acme",
	}, d.LinkURLs())
}

func TestRead_NoKeyOmitsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"code":200,"data":{}}`))
	}))
	defer srv.Close()

	resp, err := NewClient("", WithBaseURL(srv.URL)).Read(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Empty(t, resp.Data.LinkURLs())
}

func TestRead_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Read(context.Background(), "https://a.example")
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Contains(t, se.Body, "rate limited")
}

func TestRead_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Read(context.Background(), "https://a.example")
	assert.ErrorContains(t, err, "unmarshal response")
}

func TestRead_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient("k", WithBaseURL(srv.URL)).Read(ctx, "https://a.example")
	assert.ErrorContains(t, err, "send request")
}

func TestOptions(t *testing.T) {
	t.Parallel()
	hc := &http.Client{}
	c := NewClient("k", WithBaseURL(""), WithHTTPClient(hc)).(*httpClient)
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Same(t, hc, c.http)
}
