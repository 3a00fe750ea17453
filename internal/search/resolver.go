// Package search finds platform profile URLs through a web search API.
package search

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/resilience"
	"github.com/sells-group/platform-resolver/internal/telemetry"
	"github.com/sells-group/platform-resolver/pkg/serpapi"
)

// DefaultTimeout bounds one search call.
const DefaultTimeout = 5 * time.Second

// Resolver issues one search per platform and filters organic results.
type Resolver struct {
	client  serpapi.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRateLimit caps outgoing searches across all requests.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(r *Resolver) {
		if perSecond > 0 {
			if burst < 1 {
				burst = 1
			}
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithBreaker guards the search API with a circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(r *Resolver) { r.breaker = cb }
}

// NewResolver creates a Resolver over a search client.
func NewResolver(client serpapi.Client, opts ...Option) *Resolver {
	r := &Resolver{
		client:  client,
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SearchPlatform returns the first organic result that is a profile for k.
// Any failure degrades to not found.
func (r *Resolver) SearchPlatform(ctx context.Context, name string, k model.PlatformKey, address string) (string, bool) {
	start := time.Now()
	log := zap.L().With(zap.String("stage", telemetry.StageSearch), zap.String("platform", string(k)))

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			log.Debug("search: rate limit wait aborted", zap.Error(err))
			telemetry.ObserveStage(telemetry.StageSearch, telemetry.OutcomeSkipped, start)
			return "", false
		}
	}

	query := Query(name, k, address)
	call := func(ctx context.Context) (*serpapi.SearchResponse, error) {
		telemetry.FromContext(ctx).AddSearch()
		return r.client.Search(ctx, query)
	}

	var (
		resp *serpapi.SearchResponse
		err  error
	)
	if r.breaker != nil {
		resp, err = resilience.ExecuteVal(ctx, r.breaker, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		log.Debug("search: call failed", zap.String("query", query), zap.Error(err))
		telemetry.ObserveStage(telemetry.StageSearch, telemetry.OutcomeError, start)
		return "", false
	}

	link, ok := pickResult(resp.OrganicResults, k, LocationTokens(address))
	if !ok {
		log.Debug("search: no matching result", zap.Int("results", len(resp.OrganicResults)))
		telemetry.ObserveStage(telemetry.StageSearch, telemetry.OutcomeNotFound, start)
		return "", false
	}
	log.Debug("search: found", zap.String("url", link))
	telemetry.ObserveStage(telemetry.StageSearch, telemetry.OutcomeFound, start)
	return link, true
}
