// Package infer asks generative-text backends for a platform profile URL
// and keeps only answers that resolve to a live page.
package infer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/platform-resolver/internal/classify"
	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/resilience"
	"github.com/sells-group/platform-resolver/internal/telemetry"
	"github.com/sells-group/platform-resolver/internal/verify"
)

// DefaultTimeout bounds one backend call.
const DefaultTimeout = 10 * time.Second

// Resolver tries backends in order until one proposes a URL that passes
// verification.
type Resolver struct {
	backends []Backend
	prober   verify.Prober
	breakers *resilience.ServiceBreakers
	timeout  time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout overrides the per-backend timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBreakers guards each backend with its own circuit breaker, keyed by
// backend name.
func WithBreakers(sb *resilience.ServiceBreakers) Option {
	return func(r *Resolver) { r.breakers = sb }
}

// NewResolver creates a Resolver. Nil backends are dropped.
func NewResolver(prober verify.Prober, backends []Backend, opts ...Option) *Resolver {
	r := &Resolver{
		prober:  prober,
		timeout: DefaultTimeout,
	}
	for _, b := range backends {
		if b != nil {
			r.backends = append(r.backends, b)
		}
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Enabled reports whether any backend is configured.
func (r *Resolver) Enabled() bool {
	return r != nil && len(r.backends) > 0
}

// Backends returns the configured backend names in call order.
func (r *Resolver) Backends() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.backends))
	for i, b := range r.backends {
		names[i] = b.Name()
	}
	return names
}

// InferPlatform returns the first verified URL any backend proposes for
// platform k. Backend failures, unusable answers, answers off the
// platform's domains and answers that fail verification all fall through
// to the next backend.
func (r *Resolver) InferPlatform(ctx context.Context, name string, k model.PlatformKey, address, website string) (string, bool) {
	if !r.Enabled() {
		return "", false
	}
	start := time.Now()
	log := zap.L().With(zap.String("stage", telemetry.StageAI), zap.String("platform", string(k)))
	prompt := BuildPrompt(name, k, address, website)

	for _, b := range r.backends {
		if ctx.Err() != nil {
			break
		}
		answer, err := r.propose(ctx, b, prompt)
		if err != nil {
			log.Debug("infer: backend failed", zap.String("backend", b.Name()), zap.Error(err))
			continue
		}
		if !usable(answer) {
			log.Debug("infer: no usable answer", zap.String("backend", b.Name()), zap.String("answer", answer))
			continue
		}
		if !classify.Matches(k, answer) {
			log.Debug("infer: answer not a profile url", zap.String("backend", b.Name()), zap.String("url", answer))
			continue
		}
		if !r.prober.Verify(ctx, answer) {
			log.Debug("infer: answer failed verification", zap.String("backend", b.Name()), zap.String("url", answer))
			continue
		}
		log.Debug("infer: found", zap.String("backend", b.Name()), zap.String("url", answer))
		telemetry.ObserveStage(telemetry.StageAI, telemetry.OutcomeFound, start)
		return answer, true
	}

	telemetry.ObserveStage(telemetry.StageAI, telemetry.OutcomeNotFound, start)
	return "", false
}

func (r *Resolver) propose(ctx context.Context, b Backend, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	call := func(ctx context.Context) (string, error) {
		telemetry.FromContext(ctx).AddAI()
		return b.Propose(ctx, prompt)
	}
	if r.breakers == nil {
		return call(ctx)
	}
	return resilience.ExecuteVal(ctx, r.breakers.Get(b.Name()), call)
}
