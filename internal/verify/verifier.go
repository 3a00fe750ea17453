// Package verify probes candidate URLs for liveness.
package verify

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/platform-resolver/internal/telemetry"
)

// DefaultTimeout bounds a single probe including redirects.
const DefaultTimeout = 5 * time.Second

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Prober reports whether a URL is live. Implementations never fail; any
// error is reported as false.
type Prober interface {
	Verify(ctx context.Context, rawURL string) bool
}

// Verifier probes URLs with HEAD, following redirects, and treats a final
// status in 200-399 as live.
type Verifier struct {
	client  *http.Client
	timeout time.Duration
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithTimeout overrides the per-probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.client = c }
}

// New creates a Verifier with a 5s timeout.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify probes rawURL. Hosts that refuse HEAD (405/501) get one ranged GET.
func (v *Verifier) Verify(ctx context.Context, rawURL string) bool {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	status, err := v.probe(ctx, http.MethodHead, rawURL)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = v.probe(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		zap.L().Debug("verify: probe failed", zap.String("url", rawURL), zap.Error(err))
		telemetry.ObserveStage(telemetry.StageVerify, telemetry.OutcomeError, start)
		return false
	}

	live := status >= 200 && status < 400
	outcome := telemetry.OutcomeFound
	if !live {
		outcome = telemetry.OutcomeNotFound
	}
	telemetry.ObserveStage(telemetry.StageVerify, outcome, start)
	zap.L().Debug("verify: probed", zap.String("url", rawURL), zap.Int("status", status), zap.Bool("live", live))
	return live
}

func (v *Verifier) probe(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
