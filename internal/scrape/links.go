package scrape

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/sells-group/platform-resolver/internal/classify"
	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/telemetry"
)

// DefaultTimeout bounds the homepage fetch.
const DefaultTimeout = 5 * time.Second

const (
	maxBodyBytes = 1024 * 1024
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

var errInvalidWebsite = errors.New("scrape: invalid website")

// LinkScraper fetches a homepage over plain HTTP and classifies its anchors.
// When the site blocks the fetch, configured rendered fetchers get a turn.
type LinkScraper struct {
	client          *http.Client
	timeout         time.Duration
	rendered        []RenderedFetcher
	renderedTimeout time.Duration
}

// Option configures a LinkScraper.
type Option func(*LinkScraper)

// WithTimeout overrides the fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *LinkScraper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *LinkScraper) { s.client = c }
}

// WithRendered appends fallback fetchers, tried in order.
func WithRendered(f ...RenderedFetcher) Option {
	return func(s *LinkScraper) { s.rendered = append(s.rendered, f...) }
}

// WithRenderedTimeout overrides the per-fetcher rendered timeout.
func WithRenderedTimeout(d time.Duration) Option {
	return func(s *LinkScraper) {
		if d > 0 {
			s.renderedTimeout = d
		}
	}
}

// NewLinkScraper creates a LinkScraper with a 5s fetch timeout.
func NewLinkScraper(opts ...Option) *LinkScraper {
	s := &LinkScraper{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		timeout:         DefaultTimeout,
		renderedTimeout: DefaultRenderedTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ScrapeLinks fetches websiteURL and returns the first matching link per
// platform, in document order. Results are trusted as authored by the
// business: verified, source scrape.
func (s *LinkScraper) ScrapeLinks(ctx context.Context, websiteURL string) model.PlatformResultSet {
	start := time.Now()
	log := zap.L().With(zap.String("stage", telemetry.StageScrape), zap.String("website", websiteURL))

	links, err := s.fetchLinks(ctx, websiteURL)
	if err != nil && len(s.rendered) > 0 && !errors.Is(err, errInvalidWebsite) {
		log.Debug("scrape: direct fetch failed, trying rendered", zap.Error(err))
		links, err = s.fetchRendered(ctx, websiteURL)
	}
	if err != nil {
		log.Debug("scrape: no links", zap.Error(err))
		telemetry.ObserveStage(telemetry.StageScrape, telemetry.OutcomeError, start)
		return model.PlatformResultSet{}
	}

	found := MatchPlatforms(links)
	outcome := telemetry.OutcomeFound
	if len(found) == 0 {
		outcome = telemetry.OutcomeNotFound
	}
	telemetry.ObserveStage(telemetry.StageScrape, outcome, start)
	log.Debug("scrape: classified links",
		zap.Int("links", len(links)),
		zap.Int("platforms", len(found)),
	)
	return found
}

func (s *LinkScraper) fetchLinks(ctx context.Context, websiteURL string) ([]string, error) {
	base, err := url.Parse(ensureScheme(websiteURL))
	if err != nil || base.Host == "" {
		return nil, eris.Wrapf(errInvalidWebsite, "%q", websiteURL)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("scrape: blocked (%s)", blockType)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("scrape: status %d", resp.StatusCode)
	}

	// Relative links resolve against the final URL after redirects.
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}
	return ExtractLinks(bytes.NewReader(body), base)
}

// ExtractLinks returns the distinct anchor hrefs of an HTML document in
// document order, resolved against base and case-folded.
func ExtractLinks(r io.Reader, base *url.URL) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	var links []string
	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if link := resolveHref(base, attr.Val); link != "" && !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// MatchPlatforms scans links once per platform in priority order and keeps
// the first match for each.
func MatchPlatforms(links []string) model.PlatformResultSet {
	out := model.PlatformResultSet{}
	for _, k := range model.CascadePlatforms() {
		for _, link := range links {
			if classify.Matches(k, link) {
				out[k] = classify.Build(k, link, model.SourceScrape, true)
				break
			}
		}
	}
	return out
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") || strings.HasPrefix(lower, "javascript:") {
		return ""
	}
	// Authors sometimes drop the scheme from off-site links.
	if strings.HasPrefix(lower, "www.") {
		href = "https://" + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	return strings.ToLower(ref.String())
}

func ensureScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + strings.TrimPrefix(raw, "//")
}
