// Package api exposes the resolver over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/platform-resolver/internal/cost"
	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/resilience"
	"github.com/sells-group/platform-resolver/internal/resolve"
)

// DefaultBatchLimit caps businesses per batch request.
const DefaultBatchLimit = 50

const (
	batchConcurrency = 5
	requestTimeout   = 2 * time.Minute
)

// Resolver resolves one business. resolve.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, id model.BusinessIdentity, opts resolve.Options) (*resolve.Result, error)
}

// CacheAdmin is the cache surface behind the admin endpoints.
type CacheAdmin interface {
	Clear(ctx context.Context) (int64, error)
	Enabled(ctx context.Context) bool
	SetEnabled(ctx context.Context, enabled bool) error
	Retention() time.Duration
}

// OutcomeLister reads the resolution log. store.Store satisfies it.
type OutcomeLister interface {
	ListOutcomes(ctx context.Context, limit int) ([]model.ResolutionOutcome, error)
}

// BreakerStates reports upstream circuit breakers.
// resilience.ServiceBreakers satisfies it.
type BreakerStates interface {
	States() map[string]resilience.CircuitState
}

// Server holds the handler dependencies.
type Server struct {
	resolver   Resolver
	cache      CacheAdmin
	outcomes   OutcomeLister
	breakers   BreakerStates
	costs      *cost.Calculator
	origins    []string
	batchLimit int
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins sets the allowed origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithBatchLimit overrides DefaultBatchLimit.
func WithBatchLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithCostCalculator sets the calculator behind X-Resolver-Cost-Usd.
func WithCostCalculator(c *cost.Calculator) Option {
	return func(s *Server) {
		if c != nil {
			s.costs = c
		}
	}
}

// WithOutcomes mounts the resolution log endpoint.
func WithOutcomes(l OutcomeLister) Option {
	return func(s *Server) { s.outcomes = l }
}

// WithBreakers adds upstream breaker states to /health.
func WithBreakers(b BreakerStates) Option {
	return func(s *Server) { s.breakers = b }
}

// NewServer creates a Server.
func NewServer(r Resolver, c CacheAdmin, opts ...Option) *Server {
	s := &Server{
		resolver:   r,
		cache:      c,
		costs:      cost.NewCalculator(cost.DefaultRates()),
		origins:    []string{"*"},
		batchLimit: DefaultBatchLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes returns the router with middleware and every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		ExposedHeaders: []string{headerCalls, headerDebugID, headerCost},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Post("/platforms", s.handleResolvePost)
		r.Get("/platforms", s.handleResolveGet)
		r.Post("/platforms/batch", s.handleBatch)
		r.Delete("/platforms/cache", s.handleClearCache)
		r.Get("/admin/settings/caching", s.handleGetCaching)
		r.Post("/admin/settings/caching", s.handleSetCaching)
		if s.outcomes != nil {
			r.Get("/admin/outcomes", s.handleListOutcomes)
		}
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// handleHealth always answers 200. An open breaker degrades one stage, not
// the service.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.breakers != nil {
		states := make(map[string]string)
		for name, st := range s.breakers.States() {
			states[name] = st.String()
		}
		body["breakers"] = states
	}
	writeJSON(w, http.StatusOK, body)
}
