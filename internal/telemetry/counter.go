// Package telemetry counts external calls per resolution request and
// exports process-wide prometheus metrics.
package telemetry

import (
	"context"
	"sync/atomic"

	"github.com/sells-group/platform-resolver/internal/model"
)

// Counter tallies external calls for one resolution request. All methods
// are safe on a nil receiver so stages never need to check for one.
type Counter struct {
	search atomic.Int64
	detail atomic.Int64
	ai     atomic.Int64
}

type counterKey struct{}

// WithCounter returns a child context carrying a fresh Counter.
func WithCounter(ctx context.Context) (context.Context, *Counter) {
	c := &Counter{}
	return context.WithValue(ctx, counterKey{}, c), c
}

// FromContext returns the Counter attached to ctx, or nil.
func FromContext(ctx context.Context) *Counter {
	c, _ := ctx.Value(counterKey{}).(*Counter)
	return c
}

// AddSearch records one search-engine call.
func (c *Counter) AddSearch() {
	if c != nil {
		c.search.Add(1)
	}
}

// AddDetail records one place-details call.
func (c *Counter) AddDetail() {
	if c != nil {
		c.detail.Add(1)
	}
}

// AddAI records one inference backend call.
func (c *Counter) AddAI() {
	if c != nil {
		c.ai.Add(1)
	}
}

// Snapshot returns the current counts.
func (c *Counter) Snapshot() model.CallTelemetry {
	if c == nil {
		return model.CallTelemetry{}
	}
	t := model.CallTelemetry{
		SearchCalls: int(c.search.Load()),
		DetailCalls: int(c.detail.Load()),
		AICalls:     int(c.ai.Load()),
	}
	t.Total = t.SearchCalls + t.DetailCalls + t.AICalls
	return t
}
