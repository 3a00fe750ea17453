// Package audit records resolution outcomes off the request path.
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/sells-group/platform-resolver/internal/model"
)

// DefaultBuffer is the queue length used when none is configured.
const DefaultBuffer = 256

const writeTimeout = 5 * time.Second

var outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "platform_resolver_outcomes_total",
	Help: "Resolution outcomes handed to the recorder, by result.",
}, []string{"result"})

// Recorder accepts outcomes without blocking the caller.
type Recorder interface {
	Record(outcome model.ResolutionOutcome)
}

// Sink persists one outcome. store.Store satisfies it.
type Sink interface {
	RecordOutcome(ctx context.Context, outcome *model.ResolutionOutcome) error
}

// Nop discards every outcome.
type Nop struct{}

func (Nop) Record(model.ResolutionOutcome) {}

// AsyncRecorder queues outcomes on a buffered channel drained by one
// worker. Outcomes arriving while the queue is full are dropped.
type AsyncRecorder struct {
	sink    Sink
	queue   chan model.ResolutionOutcome
	done    chan struct{}
	dropped atomic.Int64

	// mu guards closed and the queue's lifetime: senders hold the read
	// lock, Close holds the write lock while closing the queue.
	mu     sync.RWMutex
	closed bool
}

// NewAsyncRecorder starts the worker. Call Close to drain it.
func NewAsyncRecorder(sink Sink, buffer int) *AsyncRecorder {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	r := &AsyncRecorder{
		sink:  sink,
		queue: make(chan model.ResolutionOutcome, buffer),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues outcome or drops it when the queue is full or closed.
func (r *AsyncRecorder) Record(outcome model.ResolutionOutcome) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(outcome, "closed")
		return
	}
	select {
	case r.queue <- outcome:
		outcomesTotal.WithLabelValues("queued").Inc()
	default:
		r.drop(outcome, "full")
	}
}

func (r *AsyncRecorder) drop(outcome model.ResolutionOutcome, reason string) {
	r.dropped.Add(1)
	outcomesTotal.WithLabelValues("dropped").Inc()
	zap.L().Debug("audit: outcome dropped",
		zap.String("reason", reason),
		zap.String("fingerprint", outcome.Fingerprint),
	)
}

// Dropped returns how many outcomes were discarded.
func (r *AsyncRecorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting outcomes and waits for the queue to drain or ctx
// to end.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for outcome := range r.queue {
		r.write(outcome)
	}
}

func (r *AsyncRecorder) write(outcome model.ResolutionOutcome) {
	zap.L().Info("resolution recorded",
		zap.String("fingerprint", outcome.Fingerprint),
		zap.String("business", outcome.BusinessName),
		zap.Bool("cached", outcome.Cached),
		zap.Int("resolved", len(outcome.Resolved)),
		zap.Int("calls", outcome.Telemetry.Total),
		zap.Duration("duration", outcome.Duration),
	)
	if r.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.sink.RecordOutcome(ctx, &outcome); err != nil {
		outcomesTotal.WithLabelValues("error").Inc()
		zap.L().Warn("audit: persist outcome failed", zap.Error(err))
		return
	}
	outcomesTotal.WithLabelValues("written").Inc()
}
