package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/platform-resolver/internal/model"
)

func serveHTML(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeLinks_BoltonBathrooms(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><body>
<a href="/about">About</a>
<a href="https://facebook.com/boltonbathrooms/">Facebook</a>
<a href="mailto:info@boltonbathrooms.co.uk">Email</a>
</body></html>`)

	got := NewLinkScraper().ScrapeLinks(context.Background(), srv.URL)

	require.Contains(t, got, model.PlatformFacebook)
	fb := got[model.PlatformFacebook]
	assert.Equal(t, "https://facebook.com/boltonbathrooms", fb.ProfileURL)
	assert.Equal(t, "https://facebook.com/boltonbathrooms/reviews", fb.ReviewURL)
	assert.True(t, fb.Verified)
	assert.Equal(t, model.SourceScrape, fb.Source)
	assert.NotContains(t, got, model.PlatformTwitter)
	assert.NotContains(t, got, model.PlatformGoogle)
}

func TestScrapeLinks_FirstMatchInDocumentOrder(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><body>
<header><a href="https://www.instagram.com/first_account/">IG</a></header>
<footer>
  <a href="https://www.instagram.com/second_account/">IG</a>
  <a href="https://www.linkedin.com/company/acme">LinkedIn</a>
</footer></body></html>`)

	s := NewLinkScraper()
	for i := 0; i < 5; i++ {
		got := s.ScrapeLinks(context.Background(), srv.URL)
		assert.Equal(t, "https://www.instagram.com/first_account", got[model.PlatformInstagram].ProfileURL)
		assert.Equal(t, "https://www.linkedin.com/company/acme", got[model.PlatformLinkedIn].ProfileURL)
	}
}

func TestScrapeLinks_SkipsShareWidgets(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><body>
<a href="https://www.facebook.com/sharer/sharer.php?u=https://acme.com">Share</a>
<a href="https://twitter.com/intent/tweet?url=https://acme.com">Tweet</a>
<a href="https://www.facebook.com/AcmePlumbing">Follow</a>
</body></html>`)

	got := NewLinkScraper().ScrapeLinks(context.Background(), srv.URL)
	assert.Equal(t, "https://www.facebook.com/acmeplumbing", got[model.PlatformFacebook].ProfileURL)
	assert.NotContains(t, got, model.PlatformTwitter)
}

func TestScrapeLinks_LinkedInNormalized(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<a href="https://uk.linkedin.com/company/acme-ltd/?trk=footer">in</a>`)

	got := NewLinkScraper().ScrapeLinks(context.Background(), srv.URL)
	assert.Equal(t, "https://www.linkedin.com/company/acme-ltd", got[model.PlatformLinkedIn].ProfileURL)
}

func TestScrapeLinks_NonSuccessIsEmpty(t *testing.T) {
	srv := serveHTML(t, http.StatusNotFound, `<a href="https://facebook.com/acme">fb</a>`)

	got := NewLinkScraper().ScrapeLinks(context.Background(), srv.URL)
	assert.Empty(t, got)
}

func TestScrapeLinks_BlockedIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cf-Ray", "abc123")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<a href="https://facebook.com/acme">fb</a>`))
	}))
	defer srv.Close()

	assert.Empty(t, NewLinkScraper().ScrapeLinks(context.Background(), srv.URL))
}

func TestScrapeLinks_TimeoutIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	s := NewLinkScraper(WithTimeout(50 * time.Millisecond))
	assert.Empty(t, s.ScrapeLinks(context.Background(), srv.URL))
}

func TestScrapeLinks_UnreachableIsEmpty(t *testing.T) {
	assert.Empty(t, NewLinkScraper().ScrapeLinks(context.Background(), "http://127.0.0.1:1"))
	assert.Empty(t, NewLinkScraper().ScrapeLinks(context.Background(), ""))
}

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	base, _ := url.Parse("https://acme.co.uk/home")
	doc := `<html><body>
<a href="/contact">Contact</a>
<a href="HTTPS://WWW.YELL.COM/biz/Acme/">Yell</a>
<a href="/contact">Contact again</a>
<a href="#top">Top</a>
<a href="tel:0123">Call</a>
<a href="www.trustpilot.com/review/acme.co.uk">TP</a>
<a>no href</a>
</body></html>`

	links, err := ExtractLinks(strings.NewReader(doc), base)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://acme.co.uk/contact",
		"https://www.yell.com/biz/acme/",
		"https://www.trustpilot.com/review/acme.co.uk",
	}, links)
}

func TestMatchPlatforms_TrustpilotReviewURL(t *testing.T) {
	t.Parallel()

	got := MatchPlatforms([]string{
		"https://acme.co.uk/contact",
		"https://uk.trustpilot.com/review/acme.co.uk",
	})
	require.Contains(t, got, model.PlatformTrustpilot)
	assert.Equal(t, got[model.PlatformTrustpilot].ProfileURL, got[model.PlatformTrustpilot].ReviewURL)
	assert.Len(t, got, 1)
}
