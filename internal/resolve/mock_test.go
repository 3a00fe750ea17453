package resolve

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/telemetry"
	"github.com/sells-group/platform-resolver/pkg/google"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchPlatform(ctx context.Context, name string, k model.PlatformKey, address string) (string, bool) {
	telemetry.FromContext(ctx).AddSearch()
	args := m.Called(ctx, name, k, address)
	return args.String(0), args.Bool(1)
}

type mockInferrer struct {
	mock.Mock
}

func (m *mockInferrer) InferPlatform(ctx context.Context, name string, k model.PlatformKey, address, website string) (string, bool) {
	telemetry.FromContext(ctx).AddAI()
	args := m.Called(ctx, name, k, address, website)
	return args.String(0), args.Bool(1)
}

type mockDetailer struct {
	mock.Mock
}

func (m *mockDetailer) PlaceDetails(ctx context.Context, placeID string) (*google.PlaceDetails, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*google.PlaceDetails), args.Error(1)
}

type stubScraper struct {
	mu    sync.Mutex
	calls []string
	set   model.PlatformResultSet
}

func (s *stubScraper) ScrapeLinks(_ context.Context, websiteURL string) model.PlatformResultSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, websiteURL)
	return s.set.Clone()
}

type stubProber struct {
	live map[string]bool
}

func (p stubProber) Verify(_ context.Context, rawURL string) bool {
	return p.live[rawURL]
}

type captureRecorder struct {
	mu       sync.Mutex
	outcomes []model.ResolutionOutcome
}

func (r *captureRecorder) Record(o model.ResolutionOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

// notFound makes every remaining cascade call miss.
func notFound(s *mockSearcher, i *mockInferrer) {
	if s != nil {
		s.On("SearchPlatform", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", false).Maybe()
	}
	if i != nil {
		i.On("InferPlatform", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", false).Maybe()
	}
}
