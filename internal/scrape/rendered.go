package scrape

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/platform-resolver/internal/resilience"
	"github.com/sells-group/platform-resolver/internal/telemetry"
	"github.com/sells-group/platform-resolver/pkg/firecrawl"
	"github.com/sells-group/platform-resolver/pkg/jina"
)

// DefaultRenderedTimeout bounds one rendered fetch. Browser rendering is
// slower than a plain GET.
const DefaultRenderedTimeout = 10 * time.Second

// RenderedFetcher returns the outbound links of a page rendered by a
// remote browser service. LinkScraper tries these in order when the direct
// fetch is blocked or fails.
type RenderedFetcher interface {
	Name() string
	FetchLinks(ctx context.Context, websiteURL string) ([]string, error)
}

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// looksChallenged reports whether rendered text is an interstitial rather
// than the site itself.
func looksChallenged(content string) bool {
	content = strings.TrimSpace(content)
	if len(content) >= 1000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// JinaFetcher renders through the Jina Reader links summary.
type JinaFetcher struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaFetcher wraps a Jina client. cb may be nil.
func NewJinaFetcher(c jina.Client, cb *resilience.CircuitBreaker) *JinaFetcher {
	return &JinaFetcher{client: c, breaker: cb}
}

// Name implements RenderedFetcher.
func (j *JinaFetcher) Name() string { return "jina" }

// FetchLinks implements RenderedFetcher. Links come back in document order
// so the first match per platform is the same one a direct fetch would pick.
func (j *JinaFetcher) FetchLinks(ctx context.Context, websiteURL string) ([]string, error) {
	resp, err := guarded(ctx, j.breaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		return j.client.Read(ctx, websiteURL)
	})
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 && resp.Code != 200 {
		return nil, eris.Errorf("jina: reader code %d", resp.Code)
	}
	if looksChallenged(resp.Data.Content) && len(resp.Data.Links) == 0 {
		return nil, eris.New("jina: challenge page")
	}
	return resp.Data.LinkURLs(), nil
}

// FirecrawlFetcher renders through Firecrawl's links format.
type FirecrawlFetcher struct {
	client  firecrawl.Client
	breaker *resilience.CircuitBreaker
}

// NewFirecrawlFetcher wraps a Firecrawl client. cb may be nil.
func NewFirecrawlFetcher(c firecrawl.Client, cb *resilience.CircuitBreaker) *FirecrawlFetcher {
	return &FirecrawlFetcher{client: c, breaker: cb}
}

// Name implements RenderedFetcher.
func (f *FirecrawlFetcher) Name() string { return "firecrawl" }

// FetchLinks implements RenderedFetcher.
func (f *FirecrawlFetcher) FetchLinks(ctx context.Context, websiteURL string) ([]string, error) {
	resp, err := guarded(ctx, f.breaker, func(ctx context.Context) (*firecrawl.ScrapeResponse, error) {
		req := firecrawl.ScrapeRequest{URL: websiteURL, Formats: []string{"links"}}
		if dl, ok := ctx.Deadline(); ok {
			req.Timeout = int(time.Until(dl).Milliseconds())
		}
		return f.client.Scrape(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}
	return resp.Data.Links, nil
}

func guarded[T any](ctx context.Context, cb *resilience.CircuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	if cb == nil {
		return fn(ctx)
	}
	return resilience.ExecuteVal(ctx, cb, fn)
}

// fetchRendered tries each rendered fetcher in order and returns the first
// non-empty link list, normalized like anchors from a direct fetch.
func (s *LinkScraper) fetchRendered(ctx context.Context, websiteURL string) ([]string, error) {
	base, _ := url.Parse(ensureScheme(websiteURL))
	target := base.String()

	var lastErr error
	for _, f := range s.rendered {
		start := time.Now()
		fctx, cancel := context.WithTimeout(ctx, s.renderedTimeout)
		raw, err := f.FetchLinks(fctx, target)
		cancel()
		if err != nil {
			telemetry.ObserveStage(telemetry.StageRendered, telemetry.OutcomeError, start)
			zap.L().Debug("scrape: rendered fetch failed, trying next",
				zap.String("fetcher", f.Name()),
				zap.String("website", target),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		links := make([]string, 0, len(raw))
		seen := make(map[string]bool, len(raw))
		for _, href := range raw {
			if link := resolveHref(base, href); link != "" && !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		}
		if len(links) == 0 {
			telemetry.ObserveStage(telemetry.StageRendered, telemetry.OutcomeNotFound, start)
			continue
		}
		telemetry.ObserveStage(telemetry.StageRendered, telemetry.OutcomeFound, start)
		return links, nil
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: rendered fetchers failed")
	}
	return nil, eris.New("scrape: rendered fetchers returned no links")
}
