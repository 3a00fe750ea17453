// Package resolve runs the platform cascade for one business: Google
// synthesis, website scrape, then search and inference per platform, with
// the result cached by identity fingerprint.
package resolve

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/platform-resolver/internal/audit"
	"github.com/sells-group/platform-resolver/internal/classify"
	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/resilience"
	"github.com/sells-group/platform-resolver/internal/scrape"
	"github.com/sells-group/platform-resolver/internal/telemetry"
	"github.com/sells-group/platform-resolver/internal/verify"
)

// DefaultBudget is the soft deadline for one uncached resolution.
const DefaultBudget = 30 * time.Second

// ErrInvalidIdentity is returned when the business name is blank.
var ErrInvalidIdentity = errors.New("resolve: business name is required")

// ResultCache is the subset of cache.Cache used here.
type ResultCache interface {
	Get(ctx context.Context, fingerprint string) (*model.CacheEntry, bool)
	Put(ctx context.Context, fingerprint string, set model.PlatformResultSet)
}

// Searcher finds a profile URL through a search API.
type Searcher interface {
	SearchPlatform(ctx context.Context, name string, k model.PlatformKey, address string) (string, bool)
}

// Inferrer proposes a verified profile URL from inference backends.
type Inferrer interface {
	InferPlatform(ctx context.Context, name string, k model.PlatformKey, address, website string) (string, bool)
}

// Options tune a single resolution.
type Options struct {
	SkipCache        bool
	IncludeFallbacks bool
}

// Result is the answer for one business.
type Result struct {
	Set         model.PlatformResultSet
	Telemetry   model.CallTelemetry
	Cached      bool
	Fingerprint string
}

// Resolver orchestrates the cascade. Collaborators left unset skip their
// stage.
type Resolver struct {
	cache    ResultCache
	scraper  scrape.LinkSource
	search   Searcher
	infer    Inferrer
	verifier verify.Prober
	details  PlaceDetailer
	recorder audit.Recorder

	retry          resilience.RetryConfig
	budget         time.Duration
	maxConcurrency int

	group singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithScraper enables the website stage.
func WithScraper(s scrape.LinkSource) Option {
	return func(r *Resolver) { r.scraper = s }
}

// WithSearcher enables the search stage.
func WithSearcher(s Searcher) Option {
	return func(r *Resolver) { r.search = s }
}

// WithInferrer enables the inference stage.
func WithInferrer(i Inferrer) Option {
	return func(r *Resolver) { r.infer = i }
}

// WithVerifier sets the prober used to mark search hits verified.
func WithVerifier(p verify.Prober) Option {
	return func(r *Resolver) { r.verifier = p }
}

// WithPlaceDetails enables website backfill from the place record.
func WithPlaceDetails(d PlaceDetailer, retry resilience.RetryConfig) Option {
	return func(r *Resolver) {
		r.details = d
		r.retry = retry
	}
}

// WithRecorder publishes an outcome after every resolution.
func WithRecorder(rec audit.Recorder) Option {
	return func(r *Resolver) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithBudget overrides the soft deadline.
func WithBudget(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.budget = d
		}
	}
}

// WithMaxConcurrency caps concurrent platform cascades per resolution.
func WithMaxConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxConcurrency = n
		}
	}
}

// New creates a Resolver backed by c.
func New(c ResultCache, opts ...Option) *Resolver {
	r := &Resolver{
		cache:          c,
		recorder:       audit.Nop{},
		retry:          resilience.DefaultRetryConfig(),
		budget:         DefaultBudget,
		maxConcurrency: len(model.CascadePlatforms()),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the platform set for id. The only error is
// ErrInvalidIdentity; stage failures degrade to missing platforms.
func (r *Resolver) Resolve(ctx context.Context, id model.BusinessIdentity, opts Options) (*Result, error) {
	if !id.Valid() {
		return nil, ErrInvalidIdentity
	}
	start := time.Now()
	fp := id.Fingerprint()

	if !opts.SkipCache && r.cache != nil {
		if entry, ok := r.cache.Get(ctx, fp); ok {
			res := &Result{Set: entry.ResultSet.Clone(), Cached: true, Fingerprint: fp}
			r.finish(id, res, opts, start)
			return res, nil
		}
	}

	var res *Result
	if opts.SkipCache {
		res = r.run(ctx, id, fp)
	} else {
		led := false
		v, _, _ := r.group.Do(fp, func() (any, error) {
			led = true
			return r.run(ctx, id, fp), nil
		})
		// Callers sharing a flight each get their own set. Only the caller
		// that ran the cascade reports its calls.
		cp := *v.(*Result)
		cp.Set = cp.Set.Clone()
		if !led {
			cp.Telemetry = model.CallTelemetry{}
		}
		res = &cp
	}
	r.finish(id, res, opts, start)
	return res, nil
}

// run executes the cascade on a context detached from the caller and
// bounded by the budget, then caches the set.
func (r *Resolver) run(parent context.Context, id model.BusinessIdentity, fp string) *Result {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.budget)
	defer cancel()
	ctx, counter := telemetry.WithCounter(ctx)

	log := zap.L().With(zap.String("business", id.Name), zap.String("fingerprint", fp))

	id = r.backfillWebsite(ctx, id)

	set := model.PlatformResultSet{}
	set[model.PlatformGoogle] = GoogleResult(id)

	if id.Website != "" && r.scraper != nil {
		set.Merge(r.scraper.ScrapeLinks(ctx, id.Website))
	}

	var pending []model.PlatformKey
	for _, k := range model.CascadePlatforms() {
		if !set.Resolved(k) {
			pending = append(pending, k)
		}
	}

	if len(pending) > 0 && (r.search != nil || r.infer != nil) {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.maxConcurrency)
		for _, k := range pending {
			g.Go(func() error {
				if pr, ok := r.resolvePlatform(gctx, id, k); ok {
					mu.Lock()
					set[k] = pr
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	if ctx.Err() != nil {
		log.Warn("resolve: budget exhausted, returning partial set", zap.Duration("budget", r.budget))
	}

	if r.cache != nil {
		r.cache.Put(context.WithoutCancel(ctx), fp, set)
	}

	snap := counter.Snapshot()
	log.Info("resolve: cascade complete",
		zap.Int("resolved", len(set)),
		zap.Int("search_calls", snap.SearchCalls),
		zap.Int("detail_calls", snap.DetailCalls),
		zap.Int("ai_calls", snap.AICalls),
	)
	return &Result{Set: set, Telemetry: snap, Fingerprint: fp}
}

// resolvePlatform tries search, then inference. Search hits are kept
// whether or not the probe succeeds; inference hits are verified already.
func (r *Resolver) resolvePlatform(ctx context.Context, id model.BusinessIdentity, k model.PlatformKey) (model.PlatformResult, bool) {
	if r.search != nil {
		if link, ok := r.search.SearchPlatform(ctx, id.Name, k, id.Address); ok {
			return classify.Build(k, link, model.SourceSearch, r.probe(ctx, link)), true
		}
	}
	if r.infer != nil && ctx.Err() == nil {
		if link, ok := r.infer.InferPlatform(ctx, id.Name, k, id.Address, id.Website); ok {
			return classify.Build(k, link, model.SourceAI, true), true
		}
	}
	return model.PlatformResult{}, false
}

func (r *Resolver) probe(ctx context.Context, link string) bool {
	if r.verifier == nil {
		return false
	}
	return r.verifier.Verify(ctx, link)
}

func (r *Resolver) finish(id model.BusinessIdentity, res *Result, opts Options, start time.Time) {
	// PlaceID is outside the fingerprint, so a cached or shared set may carry
	// another caller's Google links.
	res.Set[model.PlatformGoogle] = GoogleResult(id)
	if opts.IncludeFallbacks {
		AddFallbacks(res.Set, id)
	}
	telemetry.ObserveResolution(res.Cached, start)

	sources := make(map[model.PlatformKey]model.Source, len(res.Set))
	for k, v := range res.Set {
		sources[k] = v.Source
	}
	r.recorder.Record(model.ResolutionOutcome{
		ID:           uuid.NewString(),
		Fingerprint:  res.Fingerprint,
		BusinessName: id.Name,
		Cached:       res.Cached,
		Resolved:     res.Set.Keys(),
		Sources:      sources,
		Telemetry:    res.Telemetry,
		Duration:     time.Since(start),
		CreatedAt:    time.Now().UTC(),
	})
}
