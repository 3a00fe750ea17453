package infer

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type mockBackend struct {
	mock.Mock
	name string
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Propose(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// stubProber reports the configured URLs as live and records every probe.
type stubProber struct {
	mu     sync.Mutex
	live   map[string]bool
	probed []string
}

func newStubProber(live ...string) *stubProber {
	p := &stubProber{live: map[string]bool{}}
	for _, u := range live {
		p.live[u] = true
	}
	return p
}

func (p *stubProber) Verify(_ context.Context, rawURL string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, rawURL)
	return p.live[rawURL]
}
