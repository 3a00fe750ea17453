package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/platform-resolver/internal/audit"
	"github.com/sells-group/platform-resolver/internal/cache"
	"github.com/sells-group/platform-resolver/internal/config"
	"github.com/sells-group/platform-resolver/internal/cost"
	"github.com/sells-group/platform-resolver/internal/infer"
	"github.com/sells-group/platform-resolver/internal/resilience"
	"github.com/sells-group/platform-resolver/internal/resolve"
	"github.com/sells-group/platform-resolver/internal/scrape"
	"github.com/sells-group/platform-resolver/internal/search"
	"github.com/sells-group/platform-resolver/internal/store"
	"github.com/sells-group/platform-resolver/internal/verify"
	anthropicpkg "github.com/sells-group/platform-resolver/pkg/anthropic"
	"github.com/sells-group/platform-resolver/pkg/firecrawl"
	"github.com/sells-group/platform-resolver/pkg/gemini"
	"github.com/sells-group/platform-resolver/pkg/google"
	"github.com/sells-group/platform-resolver/pkg/jina"
	"github.com/sells-group/platform-resolver/pkg/openai"
	"github.com/sells-group/platform-resolver/pkg/perplexity"
	"github.com/sells-group/platform-resolver/pkg/serpapi"
)

const auditDrainTimeout = 5 * time.Second

// resolverEnv holds everything a command needs to resolve businesses.
type resolverEnv struct {
	Store    store.Store
	Cache    *cache.Cache
	Resolver *resolve.Resolver
	Recorder *audit.AsyncRecorder
	Costs    *cost.Calculator
	Breakers *resilience.ServiceBreakers
	redis    *redis.Client
}

// Close drains the outcome queue and releases connections.
func (e *resolverEnv) Close() {
	if e.Recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), auditDrainTimeout)
		if err := e.Recorder.Close(ctx); err != nil {
			zap.L().Warn("audit queue not drained", zap.Error(err), zap.Int64("dropped", e.Recorder.Dropped()))
		}
		cancel()
	}
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initCache builds the cache over the configured backend. The toggle
// always lives in the store so every replica sees the same value.
func initCache(ctx context.Context, st store.Store, cc config.CacheConfig) (*cache.Cache, *redis.Client, error) {
	var (
		backend cache.Backend
		rdb     *redis.Client
	)
	switch cc.Backend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cc.RedisURL)
		if err != nil {
			return nil, nil, eris.Wrap(err, "connect redis")
		}
		rdb = client
		backend = cache.NewRedisBackend(client, cache.WithKeyPrefix(cc.KeyPrefix))
	case "memory":
		backend = cache.NewMemoryBackend()
	default:
		backend = cache.NewStoreBackend(st)
	}
	zap.L().Debug("cache backend ready", zap.String("backend", backend.Name()))
	return cache.New(backend, st,
		cache.WithRetention(cc.Retention),
		cache.WithDefaultEnabled(cc.Enabled),
	), rdb, nil
}

func inferenceBackends() []infer.Backend {
	var backends []infer.Backend
	if cfg.OpenAI.Key != "" {
		backends = append(backends, &infer.OpenAIBackend{
			Client: openai.NewClient(cfg.OpenAI.Key, openai.WithBaseURL(cfg.OpenAI.BaseURL)),
			Model:  cfg.OpenAI.Model,
		})
	}
	if cfg.Gemini.Key != "" {
		backends = append(backends, &infer.GeminiBackend{
			Client: gemini.NewClient(cfg.Gemini.Key, gemini.WithBaseURL(cfg.Gemini.BaseURL), gemini.WithModel(cfg.Gemini.Model)),
			Model:  cfg.Gemini.Model,
		})
	}
	if cfg.Anthropic.Key != "" {
		backends = append(backends, &infer.AnthropicBackend{
			Client: anthropicpkg.NewClient(cfg.Anthropic.Key),
			Model:  cfg.Anthropic.Model,
		})
	}
	if cfg.Perplexity.Key != "" {
		backends = append(backends, &infer.PerplexityBackend{
			Client: perplexity.NewClient(cfg.Perplexity.Key, perplexity.WithBaseURL(cfg.Perplexity.BaseURL), perplexity.WithModel(cfg.Perplexity.Model)),
			Model:  cfg.Perplexity.Model,
		})
	}
	return backends
}

func newGoogleClient() google.Client {
	if cfg.Google.Key == "" {
		return nil
	}
	return google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL), google.WithRegion(cfg.Google.Region))
}

// renderedFetchers returns the fallback fetchers for blocked websites, Jina
// before Firecrawl.
func renderedFetchers(breakers *resilience.ServiceBreakers) []scrape.RenderedFetcher {
	var out []scrape.RenderedFetcher
	if cfg.Jina.Enabled || cfg.Jina.Key != "" {
		out = append(out, scrape.NewJinaFetcher(
			jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL)),
			breakers.Get("jina"),
		))
	}
	if cfg.Firecrawl.Key != "" {
		out = append(out, scrape.NewFirecrawlFetcher(
			firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL)),
			breakers.Get("firecrawl"),
		))
	}
	return out
}

func newLinkScraper(breakers *resilience.ServiceBreakers) *scrape.LinkScraper {
	rendered := renderedFetchers(breakers)
	if len(rendered) > 0 {
		names := make([]string, len(rendered))
		for i, f := range rendered {
			names[i] = f.Name()
		}
		zap.L().Info("rendered scrape fallback enabled", zap.Strings("fetchers", names))
	}
	return scrape.NewLinkScraper(
		scrape.WithTimeout(cfg.Resolver.ScrapeTimeout),
		scrape.WithRendered(rendered...),
		scrape.WithRenderedTimeout(cfg.Resolver.RenderedTimeout),
	)
}

// initResolver wires the cascade. Stages whose credentials are missing are
// left out.
func initResolver(ctx context.Context) (*resolverEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &resolverEnv{Store: st, Costs: cost.NewCalculator(cfg.Pricing)}

	c, rdb, err := initCache(ctx, st, cfg.Cache)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Cache, env.redis = c, rdb

	breakers := resilience.NewServiceBreakers(resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeout))
	env.Breakers = breakers
	verifier := verify.New(verify.WithTimeout(cfg.Resolver.VerifyTimeout))
	env.Recorder = audit.NewAsyncRecorder(st, cfg.Audit.Buffer)

	opts := []resolve.Option{
		resolve.WithScraper(newLinkScraper(breakers)),
		resolve.WithVerifier(verifier),
		resolve.WithRecorder(env.Recorder),
		resolve.WithBudget(cfg.Resolver.Budget),
		resolve.WithMaxConcurrency(cfg.Resolver.MaxConcurrency),
	}

	if cfg.SerpAPI.Key != "" {
		client := serpapi.NewClient(cfg.SerpAPI.Key,
			serpapi.WithBaseURL(cfg.SerpAPI.BaseURL),
			serpapi.WithLocale(cfg.SerpAPI.Country, cfg.SerpAPI.Language),
		)
		opts = append(opts, resolve.WithSearcher(search.NewResolver(client,
			search.WithTimeout(cfg.Resolver.SearchTimeout),
			search.WithRateLimit(cfg.SerpAPI.RatePerSec, cfg.SerpAPI.Burst),
			search.WithBreaker(breakers.Get("serpapi")),
		)))
		zap.L().Info("search stage enabled")
	} else {
		zap.L().Debug("RESOLVER_SERPAPI_KEY not set, search stage disabled")
	}

	inf := infer.NewResolver(verifier, inferenceBackends(),
		infer.WithTimeout(cfg.Resolver.AITimeout),
		infer.WithBreakers(breakers),
	)
	if inf.Enabled() {
		opts = append(opts, resolve.WithInferrer(inf))
		zap.L().Info("inference stage enabled", zap.Strings("backends", inf.Backends()))
	} else {
		zap.L().Debug("no inference keys set, inference stage disabled")
	}

	if gc := newGoogleClient(); gc != nil {
		retry := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoff, cfg.Retry.MaxBackoff, cfg.Retry.Multiplier)
		retry.OnRetry = resilience.RetryLogger("google", "place_details")
		opts = append(opts, resolve.WithPlaceDetails(gc, retry))
		zap.L().Info("place details backfill enabled")
	}

	env.Resolver = resolve.New(env.Cache, opts...)
	return env, nil
}
